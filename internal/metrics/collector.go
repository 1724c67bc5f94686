// Package metrics exposes Prometheus metrics for the backend client, pollers and alert feeds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics on a private registry.
type Collector struct {
	reg *prometheus.Registry

	FetchAttempts *prometheus.CounterVec // outcome label: success|timeout|http_error|network_error|circuit_open|canceled|error
	FetchRetries  prometheus.Counter
	FetchDuration prometheus.Histogram

	Probes        *prometheus.CounterVec // result label: online|offline
	BackendOnline prometheus.Gauge

	Polls *prometheus.CounterVec // query, result labels: applied|discarded

	Alerts        *prometheus.CounterVec // source label: simulator|external
	NATSConnected prometheus.Gauge
	NATSRejected  prometheus.Counter
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficpulse_fetch_attempts_total",
			Help: "Backend request attempts by outcome.",
		}, []string{"outcome"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficpulse_fetch_retries_total",
			Help: "Total retries after a failed backend attempt.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficpulse_fetch_duration_seconds",
			Help:    "Duration of a single backend request attempt.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficpulse_probes_total",
			Help: "Reachability probes by result.",
		}, []string{"result"}),
		BackendOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trafficpulse_backend_online",
			Help: "1 if the last probe reached the simulation backend, 0 otherwise.",
		}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficpulse_polls_total",
			Help: "Poll results by query and whether they were applied.",
		}, []string{"query", "result"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficpulse_alerts_total",
			Help: "Alerts raised by source.",
		}, []string{"source"}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trafficpulse_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		NATSRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trafficpulse_nats_rejected_total",
			Help: "Alert messages dropped because they could not be decoded.",
		}),
	}

	reg.MustRegister(
		c.FetchAttempts, c.FetchRetries, c.FetchDuration,
		c.Probes, c.BackendOnline,
		c.Polls,
		c.Alerts, c.NATSConnected, c.NATSRejected,
	)

	return c
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveAttempt implements fetch.Observer.
func (c *Collector) ObserveAttempt(outcome string, d time.Duration) {
	c.FetchAttempts.WithLabelValues(outcome).Inc()
	c.FetchDuration.Observe(d.Seconds())
}

// ObserveRetry implements fetch.Observer.
func (c *Collector) ObserveRetry() { c.FetchRetries.Inc() }

// ObserveProbe implements service.Metrics.
func (c *Collector) ObserveProbe(online bool) {
	if online {
		c.Probes.WithLabelValues("online").Inc()
		c.BackendOnline.Set(1)
		return
	}
	c.Probes.WithLabelValues("offline").Inc()
	c.BackendOnline.Set(0)
}

// ObservePoll implements service.Metrics.
func (c *Collector) ObservePoll(query string, applied bool) {
	result := "discarded"
	if applied {
		result = "applied"
	}
	c.Polls.WithLabelValues(query, result).Inc()
}

// ObserveAlert implements service.Metrics.
func (c *Collector) ObserveAlert(source string) { c.Alerts.WithLabelValues(source).Inc() }

// NATSSetConnected implements subscriber.Metrics.
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

// NATSRejectedInc implements subscriber.Metrics.
func (c *Collector) NATSRejectedInc() { c.NATSRejected.Inc() }
