// Package config loads the service configuration from the environment.
//
// Values are resolved as: OS environment (highest), then a .env file, then the
// defaults in the struct tags. An invalid value fails startup.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environments accepted in APP_ENV
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the top-level configuration. It is loaded once and never modified.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development production test"`
	Port        string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Backend BackendConfig
	Poll    PollConfig
	Alerts  AlertsConfig
	NATS    NATSConfig
}

// BackendConfig locates the traffic simulation backend and tunes the fetch policy.
type BackendConfig struct {
	// URL overrides the environment based choice when set
	URL      string `envconfig:"TRAFFIC_BACKEND_URL" validate:"omitempty,url"`
	ProdURL  string `envconfig:"PROD_BACKEND_URL" default:"https://atu-traffic-pulse-backend.onrender.com" validate:"required,url"`
	LocalURL string `envconfig:"LOCAL_BACKEND_URL" default:"http://localhost:5000" validate:"required,url"`

	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	MaxAttempts        int           `envconfig:"MAX_ATTEMPTS" default:"3" validate:"min=1,max=10"`
	BackoffBase        time.Duration `envconfig:"BACKOFF_BASE" default:"1s" validate:"gt=0"`
	BackoffMax         time.Duration `envconfig:"BACKOFF_MAX" default:"5s" validate:"gtefield=BackoffBase"`
	ProbeTimeout       time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s" validate:"gt=0"`
	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"0"` // 0 disables the breaker
	BreakerCooldown    time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s" validate:"gt=0"`
}

// PollConfig sets the refresh cadence of each dashboard view.
type PollConfig struct {
	KPIs     time.Duration `envconfig:"KPI_POLL_INTERVAL" default:"5s" validate:"gt=0"`
	Interval time.Duration `envconfig:"INTERVAL_POLL_INTERVAL" default:"10s" validate:"gt=0"`
	Chart    time.Duration `envconfig:"CHART_POLL_INTERVAL" default:"10s" validate:"gt=0"`
	Segments time.Duration `envconfig:"SEGMENT_POLL_INTERVAL" default:"10s" validate:"gt=0"`
	Traffic  time.Duration `envconfig:"TRAFFIC_POLL_INTERVAL" default:"10s" validate:"gt=0"`
}

// AlertsConfig tunes the alert simulator.
type AlertsConfig struct {
	Tick        time.Duration `envconfig:"ALERT_TICK_INTERVAL" default:"10s" validate:"gt=0"`
	Probability float64       `envconfig:"ALERT_PROBABILITY" default:"0.15" validate:"gte=0,lte=1"`
	MaxActive   int           `envconfig:"ALERT_MAX_ACTIVE" default:"5" validate:"min=1"`
	CatalogFile string        `envconfig:"ALERT_CATALOG_FILE"` // empty selects the embedded catalog
}

// NATSConfig enables the external alert feed. An empty URL disables it.
type NATSConfig struct {
	URL     string `envconfig:"NATS_URL" validate:"omitempty,url"`
	Subject string `envconfig:"NATS_ALERT_SUBJECT" default:"trafficpulse.alerts" validate:"required"`
}

// ErrorType categorizes configuration loading failures.
type ErrorType string

const (
	// ErrParsing indicates a value could not be parsed into its field type.
	ErrParsing ErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ErrorType = "VALIDATION_FAILED"
)

// Error is returned by Load to aid debugging.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads .env (if present) and the environment, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &Error{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &Error{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// BackendURL returns TRAFFIC_BACKEND_URL when set, otherwise the production or
// local backend depending on APP_ENV.
func (c *Config) BackendURL() string {
	if c.Backend.URL != "" {
		return c.Backend.URL
	}
	if c.IsProduction() {
		return c.Backend.ProdURL
	}
	return c.Backend.LocalURL
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
