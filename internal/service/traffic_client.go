package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smartcity/trafficpulse/internal/domain"
	"github.com/smartcity/trafficpulse/internal/fetch"
	"github.com/smartcity/trafficpulse/internal/normalize"
)

// Backend endpoints of the traffic simulation service
const (
	pathDebug           = "/api/debug"
	pathKPIs            = "/api/kpis"
	pathCurrentInterval = "/api/current_interval"
	pathIntervals       = "/api/intervals"
	pathUCPByInterval   = "/api/ucp_by_interval"
	pathVehicles        = "/api/vehicles_by_interval_and_segment"
	pathTrafficData     = "/api/traffic_data"
)

// DefaultProbeTimeout bounds the reachability probe, which is never retried
const DefaultProbeTimeout = 5 * time.Second

// TrafficClient is the only component that talks to the simulation backend.
// Every method absorbs failures and returns a nil, empty or sentinel value.
type TrafficClient struct {
	baseURL      string
	fetcher      *fetch.Fetcher
	probeTimeout time.Duration
	reach        *Reachability
	probing      atomic.Bool
	logger       *slog.Logger
	metrics      Metrics
	now          func() time.Time
}

// ClientOption configures a TrafficClient
type ClientOption func(*TrafficClient)

// WithProbeTimeout overrides DefaultProbeTimeout
func WithProbeTimeout(d time.Duration) ClientOption {
	return func(c *TrafficClient) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithReachability shares an existing reachability store
func WithReachability(r *Reachability) ClientOption {
	return func(c *TrafficClient) {
		c.reach = r
	}
}

// WithClientLogger sets the logger
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *TrafficClient) {
		c.logger = l
	}
}

// WithClientMetrics registers a metrics sink
func WithClientMetrics(m Metrics) ClientOption {
	return func(c *TrafficClient) {
		c.metrics = m
	}
}

// NewTrafficClient creates a client for the backend at baseURL
func NewTrafficClient(baseURL string, fetcher *fetch.Fetcher, opts ...ClientOption) *TrafficClient {
	c := &TrafficClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		fetcher:      fetcher,
		probeTimeout: DefaultProbeTimeout,
		reach:        NewReachability(),
		logger:       slog.Default(),
		metrics:      noopMetrics{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reachability returns the read-only reachability store written by CheckServerStatus
func (c *TrafficClient) Reachability() *Reachability {
	return c.reach
}

// CheckServerStatus probes the debug endpoint and records the result.
// While a probe is in flight, other callers get the last known state instead of
// issuing their own request.
func (c *TrafficClient) CheckServerStatus(ctx context.Context) bool {
	if !c.probing.CompareAndSwap(false, true) {
		return c.reach.Online()
	}
	defer c.probing.Store(false)

	_, err := c.fetcher.GetWith(ctx, c.endpoint(pathDebug, nil), c.probeTimeout, 1)
	if err != nil && ctx.Err() != nil {
		// the caller went away; that says nothing about the backend
		return c.reach.Online()
	}

	online := err == nil
	if !online {
		c.logger.Warn("traffic backend unreachable",
			"url", c.baseURL,
			"outcome", fetch.Outcome(err),
			"error", err,
		)
	}
	c.reach.record(online, c.now())
	c.metrics.ObserveProbe(online)
	return online
}

// GetKPIs returns the current KPIs, or nil when they cannot be fetched.
// No placeholder values are ever substituted.
func (c *TrafficClient) GetKPIs(ctx context.Context) *domain.KPISnapshot {
	if !c.CheckServerStatus(ctx) {
		return nil
	}

	rec, err := c.getObject(ctx, pathKPIs)
	if err != nil {
		c.logFailure(ctx, "kpis", err)
		return nil
	}

	kpis := normalize.KPIs(rec)
	kpis.AverageTravelTime = AverageTravelTime(kpis.CongestionPercentage)
	return &kpis
}

// GetCurrentInterval returns the simulation position, or domain.UnavailableInterval()
func (c *TrafficClient) GetCurrentInterval(ctx context.Context) domain.IntervalState {
	if !c.CheckServerStatus(ctx) {
		return domain.UnavailableInterval()
	}

	rec, err := c.getObject(ctx, pathCurrentInterval)
	if err != nil {
		c.logFailure(ctx, "current_interval", err)
		return domain.UnavailableInterval()
	}
	return normalize.Interval(rec)
}

// GetAllIntervals returns the interval labels in backend order
func (c *TrafficClient) GetAllIntervals(ctx context.Context) []string {
	if !c.CheckServerStatus(ctx) {
		return []string{}
	}

	rec, err := c.getObject(ctx, pathIntervals)
	if err != nil {
		c.logFailure(ctx, "intervals", err)
		return []string{}
	}
	return normalize.Intervals(rec)
}

// GetUCPByInterval returns the UCP series in backend order
func (c *TrafficClient) GetUCPByInterval(ctx context.Context) []domain.UCPPoint {
	if !c.CheckServerStatus(ctx) {
		return []domain.UCPPoint{}
	}

	items, err := c.getArray(ctx, pathUCPByInterval, nil)
	if err != nil {
		c.logFailure(ctx, "ucp_by_interval", err)
		return []domain.UCPPoint{}
	}
	return normalize.UCPPoints(items)
}

// GetVehiclesByIntervalAndSegment returns per-segment vehicle counts for one interval.
// It does not probe first: the table is queried on user demand.
func (c *TrafficClient) GetVehiclesByIntervalAndSegment(ctx context.Context, interval string) []domain.SegmentVehicleRecord {
	items, err := c.getArray(ctx, pathVehicles, url.Values{"interval": {interval}})
	if err != nil {
		c.logFailure(ctx, "vehicles_by_interval_and_segment", err)
		return []domain.SegmentVehicleRecord{}
	}
	return normalize.SegmentVehicles(items)
}

// GetTrafficSegments returns the live state of every route segment
func (c *TrafficClient) GetTrafficSegments(ctx context.Context) []domain.TrafficSegment {
	if !c.CheckServerStatus(ctx) {
		return []domain.TrafficSegment{}
	}

	items, err := c.getArray(ctx, pathTrafficData, nil)
	if err != nil {
		c.logFailure(ctx, "traffic_data", err)
		return []domain.TrafficSegment{}
	}
	return normalize.TrafficSegments(items)
}

// GetDebugInfo returns the backend diagnostics, or nil
func (c *TrafficClient) GetDebugInfo(ctx context.Context) *domain.DebugInfo {
	if !c.CheckServerStatus(ctx) {
		return nil
	}

	rec, err := c.getObject(ctx, pathDebug)
	if err != nil {
		c.logFailure(ctx, "debug", err)
		return nil
	}
	info := normalize.Debug(rec)
	return &info
}

func (c *TrafficClient) getObject(ctx context.Context, path string) (normalize.Record, error) {
	body, err := c.fetcher.Get(ctx, c.endpoint(path, nil))
	if err != nil {
		return nil, err
	}
	return normalize.DecodeObject(body)
}

func (c *TrafficClient) getArray(ctx context.Context, path string, query url.Values) ([]normalize.Record, error) {
	body, err := c.fetcher.Get(ctx, c.endpoint(path, query))
	if err != nil {
		return nil, err
	}
	items, err := normalize.DecodeArray(body)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return []normalize.Record{}, nil
	}
	return items, nil
}

func (c *TrafficClient) endpoint(path string, query url.Values) string {
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *TrafficClient) logFailure(ctx context.Context, query string, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.logger.Debug("traffic backend request abandoned", "query", query, "error", err)
		return
	}
	c.logger.Warn("traffic backend request failed",
		"query", query,
		"outcome", fetch.Outcome(err),
		"error", err,
	)
}
