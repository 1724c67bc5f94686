package service

import (
	"github.com/smartcity/trafficpulse/internal/domain"
)

// TrafficDataSource is re-exported from domain for convenience
type TrafficDataSource = domain.TrafficDataSource

// Metrics receives service-level observations. metrics.Collector implements it.
type Metrics interface {
	ObserveProbe(online bool)
	ObservePoll(query string, applied bool)
	ObserveAlert(source string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProbe(bool)        {}
func (noopMetrics) ObservePoll(string, bool) {}
func (noopMetrics) ObserveAlert(string)      {}
