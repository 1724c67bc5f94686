package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/trafficpulse/internal/domain"
)

// Alert simulation defaults
const (
	DefaultAlertTick        = 10 * time.Second
	DefaultAlertProbability = 0.15
	DefaultMaxAlerts        = 5
)

// Random is the subset of *rand.Rand used by the simulator
type Random interface {
	Float64() float64
	IntN(n int) int
}

// AlertConfig tunes the simulator
type AlertConfig struct {
	Tick        time.Duration
	Probability float64
	MaxActive   int
}

// AlertService keeps the short list of active alerts. Alerts come from the local
// simulator or are pushed from outside; nothing is persisted.
type AlertService struct {
	cfg     AlertConfig
	catalog AlertCatalog
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	rng    Random
	alerts []domain.Alert
}

// AlertOption configures an AlertService
type AlertOption func(*AlertService)

// WithRandom replaces the random source. Intended for tests.
func WithRandom(r Random) AlertOption {
	return func(s *AlertService) {
		s.rng = r
	}
}

// WithAlertClock replaces time.Now
func WithAlertClock(now func() time.Time) AlertOption {
	return func(s *AlertService) {
		s.now = now
	}
}

// WithAlertLogger sets the logger
func WithAlertLogger(l *slog.Logger) AlertOption {
	return func(s *AlertService) {
		s.logger = l
	}
}

// WithAlertMetrics registers a metrics sink
func WithAlertMetrics(m Metrics) AlertOption {
	return func(s *AlertService) {
		s.metrics = m
	}
}

// NewAlertService creates the service. Zero Tick and MaxActive take the defaults;
// a probability outside [0, 1] falls back to DefaultAlertProbability.
func NewAlertService(cfg AlertConfig, catalog AlertCatalog, opts ...AlertOption) *AlertService {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultAlertTick
	}
	if cfg.Probability < 0 || cfg.Probability > 1 {
		cfg.Probability = DefaultAlertProbability
	}
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = DefaultMaxAlerts
	}

	s := &AlertService{
		cfg:     cfg,
		catalog: catalog,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		now:     time.Now,
		newID:   uuid.NewString,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks the simulator until ctx is done
func (s *AlertService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if alert, ok := s.Tick(); ok {
				s.logger.Info("simulated alert raised",
					"id", alert.ID,
					"category", alert.Category,
					"severity", alert.Severity,
				)
			}
		}
	}
}

// Tick rolls once and, with the configured probability, raises a new alert
func (s *AlertService) Tick() (domain.Alert, bool) {
	s.mu.Lock()
	if s.rng.Float64() >= s.cfg.Probability || len(s.catalog.Entries) == 0 {
		s.mu.Unlock()
		return domain.Alert{}, false
	}
	alert := s.synthesize()
	s.mu.Unlock()

	alert = s.insert(alert)
	s.metrics.ObserveAlert("simulator")
	return alert, true
}

// Push adds an alert from an external source. Missing id and timestamp are filled in.
func (s *AlertService) Push(alert domain.Alert) domain.Alert {
	alert = s.insert(alert)
	s.metrics.ObserveAlert("external")
	return alert
}

// Resolve removes the alert with the given id and reports whether it existed
func (s *AlertService) Resolve(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the alerts, newest first
func (s *AlertService) List() []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func (s *AlertService) insert(alert domain.Alert) domain.Alert {
	now := s.now()
	if alert.ID == "" {
		alert.ID = s.newID()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	if alert.TimestampLabel == "" {
		alert.TimestampLabel = alert.CreatedAt.Format("15:04")
	}
	if alert.Status == "" {
		alert.Status = domain.AlertActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// same id replaces the older copy
	for i, a := range s.alerts {
		if a.ID == alert.ID {
			s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
			break
		}
	}

	next := make([]domain.Alert, 0, s.cfg.MaxActive)
	next = append(next, alert)
	for _, a := range s.alerts {
		if len(next) == s.cfg.MaxActive {
			break
		}
		next = append(next, a)
	}
	s.alerts = next
	return alert
}

// synthesize must be called with s.mu held
func (s *AlertService) synthesize() domain.Alert {
	entry := s.catalog.Entries[s.rng.IntN(len(s.catalog.Entries))]
	severities := domain.AlertSeverities()

	alert := domain.Alert{
		Category:    entry.Category,
		Severity:    severities[s.rng.IntN(len(severities))],
		Title:       pick(s.rng, entry.Titles),
		Location:    pick(s.rng, s.catalog.Locations),
		Description: pick(s.rng, entry.Descriptions),
		Status:      domain.AlertActive,
		Value:       pick(s.rng, entry.Values),
	}
	if entry.Category == domain.AlertIncident {
		alert.IncidentSubtype = pick(s.rng, entry.Subtypes)
	}
	return alert
}

func pick(rng Random, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rng.IntN(len(options))]
}
