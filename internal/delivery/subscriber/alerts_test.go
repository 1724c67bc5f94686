package subscriber

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/trafficpulse/internal/domain"
)

type fakeSink struct {
	pushed []domain.Alert
}

func (s *fakeSink) Push(alert domain.Alert) domain.Alert {
	if alert.ID == "" {
		alert.ID = "generated"
	}
	s.pushed = append(s.pushed, alert)
	return alert
}

type fakeMetrics struct {
	connected bool
	rejected  int
}

func (m *fakeMetrics) NATSSetConnected(c bool) { m.connected = c }
func (m *fakeMetrics) NATSRejectedInc()        { m.rejected++ }

func newTestHandler() (*AlertHandler, *fakeSink, *fakeMetrics) {
	sink := &fakeSink{}
	m := &fakeMetrics{}
	return NewAlertHandler(sink, slog.New(slog.NewTextHandler(io.Discard, nil)), m), sink, m
}

func TestHandle_PushesAlert(t *testing.T) {
	h, sink, m := newTestHandler()

	alert, err := h.Handle([]byte(`{
		"category": "congestionCritical",
		"severity": "high",
		"title": "Congestión Severa",
		"location": "Av. Javier Prado",
		"value": "92%"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "generated", alert.ID)
	require.Len(t, sink.pushed, 1)
	assert.Equal(t, domain.AlertCongestionCritical, sink.pushed[0].Category)
	assert.Equal(t, domain.SeverityHigh, sink.pushed[0].Severity)
	assert.Equal(t, "92%", sink.pushed[0].Value)
	assert.Zero(t, m.rejected)
}

func TestHandle_RejectsUnknownCategory(t *testing.T) {
	h, sink, m := newTestHandler()

	_, err := h.Handle([]byte(`{"category": "weather", "title": "Lluvia"}`))

	assert.True(t, errors.Is(err, ErrUnknownCategory))
	assert.Empty(t, sink.pushed)
	assert.Equal(t, 1, m.rejected)
}

func TestHandle_RejectsInvalidJSON(t *testing.T) {
	h, sink, m := newTestHandler()

	_, err := h.Handle([]byte(`{"category":`))

	assert.Error(t, err)
	assert.Empty(t, sink.pushed)
	assert.Equal(t, 1, m.rejected)
}

func TestHandle_NilMetrics(t *testing.T) {
	h := NewAlertHandler(&fakeSink{}, nil, nil)

	_, err := h.Handle([]byte(`[]`))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
