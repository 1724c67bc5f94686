package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/smartcity/trafficpulse/internal/service"
)

// SetupRoutes configures all HTTP routes. metrics may be nil.
func SetupRoutes(app *fiber.App, dashboardSvc *service.DashboardService, alertSvc *service.AlertService, metrics nethttp.Handler) {
	handler := NewHandler(dashboardSvc, alertSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/status", handler.GetStatus)

		// Dashboard views
		api.Get("/dashboard", handler.GetDashboard)
		api.Post("/dashboard/refresh", handler.RefreshDashboard)
		api.Get("/kpis", handler.GetKPIs)
		api.Get("/interval", handler.GetInterval)
		api.Get("/intervals", handler.GetIntervals)
		api.Get("/ucp", handler.GetUCP)
		api.Get("/chart", handler.GetChart)
		api.Get("/segments", handler.GetSegments)
		api.Get("/traffic", handler.GetTraffic)
		api.Get("/debug", handler.GetDebug)

		// Alerts
		api.Get("/alerts", handler.GetAlerts)
		api.Post("/alerts/:id/resolve", handler.ResolveAlert)
	}
}
