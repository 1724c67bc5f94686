// Package subscriber feeds alerts published on NATS into the alert service.
package subscriber

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/smartcity/trafficpulse/internal/domain"
	"github.com/smartcity/trafficpulse/internal/normalize"
)

// ErrUnknownCategory is returned for alert messages whose category the dashboard cannot render
var ErrUnknownCategory = errors.New("subscriber: unknown alert category")

// Metrics receives connection and rejection events
type Metrics interface {
	NATSSetConnected(connected bool)
	NATSRejectedInc()
}

// AlertHandler decodes alert messages and pushes them into a sink
type AlertHandler struct {
	sink    domain.AlertSink
	logger  *slog.Logger
	metrics Metrics
}

// NewAlertHandler creates a handler. metrics may be nil.
func NewAlertHandler(sink domain.AlertSink, logger *slog.Logger, m Metrics) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{sink: sink, logger: logger, metrics: m}
}

// Handle decodes one message body and pushes the alert
func (h *AlertHandler) Handle(data []byte) (domain.Alert, error) {
	rec, err := normalize.DecodeObject(data)
	if err != nil {
		h.reject()
		return domain.Alert{}, fmt.Errorf("subscriber: decode alert: %w", err)
	}
	alert, ok := normalize.Alert(rec)
	if !ok {
		h.reject()
		return domain.Alert{}, ErrUnknownCategory
	}
	return h.sink.Push(alert), nil
}

func (h *AlertHandler) reject() {
	if h.metrics != nil {
		h.metrics.NATSRejectedInc()
	}
}

// AlertSubscriber listens for alerts on a NATS subject
type AlertSubscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	handler *AlertHandler
	logger  *slog.Logger
}

// NewAlertSubscriber connects to url and subscribes to subject
func NewAlertSubscriber(url, subject string, handler *AlertHandler, logger *slog.Logger, m Metrics) (*AlertSubscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	setConnected := func(connected bool) {
		if m != nil {
			m.NATSSetConnected(connected)
		}
	}

	nc, err := nats.Connect(url,
		nats.Name("trafficpulse"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			setConnected(false)
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			setConnected(true)
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			setConnected(false)
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("subscriber: connect %s: %w", url, err)
	}
	setConnected(true)

	s := &AlertSubscriber{nc: nc, handler: handler, logger: logger}
	s.sub, err = nc.Subscribe(subject, s.onMessage)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscriber: subscribe %s: %w", subject, err)
	}

	logger.Info("subscribed to alert feed", "subject", subject)
	return s, nil
}

func (s *AlertSubscriber) onMessage(msg *nats.Msg) {
	alert, err := s.handler.Handle(msg.Data)
	if err != nil {
		s.logger.Warn("alert message rejected", "subject", msg.Subject, "error", err)
		return
	}
	s.logger.Info("external alert received",
		"id", alert.ID,
		"category", alert.Category,
		"severity", alert.Severity,
	)
}

// Close drains the subscription and closes the connection
func (s *AlertSubscriber) Close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.logger.Warn("nats drain failed", "error", err)
			s.nc.Close()
		}
	}
}
