package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/smartcity/trafficpulse/internal/config"
	"github.com/smartcity/trafficpulse/internal/delivery/http"
	"github.com/smartcity/trafficpulse/internal/delivery/subscriber"
	"github.com/smartcity/trafficpulse/internal/fetch"
	"github.com/smartcity/trafficpulse/internal/metrics"
	"github.com/smartcity/trafficpulse/internal/service"
)

func main() {
	// Configuration (.env is loaded by config.Load)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector()

	// Dependency Injection: backend client
	fetcher := fetch.New(fetch.Policy{
		Timeout:     cfg.Backend.RequestTimeout,
		MaxAttempts: cfg.Backend.MaxAttempts,
		BaseDelay:   cfg.Backend.BackoffBase,
		MaxDelay:    cfg.Backend.BackoffMax,
	},
		fetch.WithBreaker(fetch.NewBreaker("traffic-backend", cfg.Backend.BreakerMaxFailures, cfg.Backend.BreakerCooldown)),
		fetch.WithObserver(collector),
		fetch.WithLogger(log),
		fetch.WithUserAgent("trafficpulse/1.0"),
	)

	backendURL := cfg.BackendURL()
	client := service.NewTrafficClient(backendURL, fetcher,
		service.WithProbeTimeout(cfg.Backend.ProbeTimeout),
		service.WithClientLogger(log),
		service.WithClientMetrics(collector),
	)
	log.Info("traffic backend selected", "url", backendURL, "env", cfg.Environment)

	// Dependency Injection: Services
	catalog, err := service.LoadAlertCatalog(cfg.Alerts.CatalogFile)
	if err != nil {
		log.Error("alert catalog error", "error", err)
		os.Exit(1)
	}
	alertSvc := service.NewAlertService(service.AlertConfig{
		Tick:        cfg.Alerts.Tick,
		Probability: cfg.Alerts.Probability,
		MaxActive:   cfg.Alerts.MaxActive,
	}, catalog,
		service.WithAlertLogger(log),
		service.WithAlertMetrics(collector),
	)
	go alertSvc.Run(ctx)

	dashboardSvc := service.NewDashboardService(client, client.Reachability(), alertSvc, service.PollIntervals{
		KPIs:     cfg.Poll.KPIs,
		Interval: cfg.Poll.Interval,
		Chart:    cfg.Poll.Chart,
		Segments: cfg.Poll.Segments,
		Traffic:  cfg.Poll.Traffic,
	},
		service.WithDashboardLogger(log),
		service.WithDashboardMetrics(collector),
	)
	dashboardSvc.Start(ctx)

	// External alert feed
	var alertSub *subscriber.AlertSubscriber
	if cfg.NATS.URL != "" {
		handler := subscriber.NewAlertHandler(alertSvc, log, collector)
		alertSub, err = subscriber.NewAlertSubscriber(cfg.NATS.URL, cfg.NATS.Subject, handler, log, collector)
		if err != nil {
			log.Warn("alert feed disabled", "error", err)
		}
	}

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Traffic Pulse API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, dashboardSvc, alertSvc, collector.Handler())

	// Graceful shutdown
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if alertSub != nil {
		alertSub.Close()
	}
	cancel()
	dashboardSvc.Stop()
	log.Info("server exited gracefully")
}

// newLogger creates a JSON logger in production and a text logger elsewhere
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
