package domain

import (
	"context"
	"time"
)

// DashboardData aggregates the reconciled view state served to the UI
type DashboardData struct {
	Connected       bool                   `json:"connected"`
	KPIs            *KPISnapshot           `json:"kpis"`
	Interval        IntervalState          `json:"interval"`
	Intervals       []string               `json:"intervals"`
	UCPSeries       []UCPPoint             `json:"ucp_series"`
	Chart           []ChartPoint           `json:"chart"`
	Segments        []SegmentVehicleRecord `json:"segments"`
	TrafficSegments []TrafficSegment       `json:"traffic_segments"`
	Alerts          []Alert                `json:"alerts"`
	UpdatedAt       map[string]time.Time   `json:"updated_at"`
	Timestamp       time.Time              `json:"timestamp"`
}

// TrafficDataSource defines the queries the dashboard needs from the simulation backend.
// Implementations never return errors: failures surface as nil, empty or sentinel values.
type TrafficDataSource interface {
	// CheckServerStatus probes the backend and reports reachability
	CheckServerStatus(ctx context.Context) bool

	// GetKPIs returns nil when no real KPIs are available
	GetKPIs(ctx context.Context) *KPISnapshot

	// GetCurrentInterval returns UnavailableInterval() on failure
	GetCurrentInterval(ctx context.Context) IntervalState

	GetAllIntervals(ctx context.Context) []string
	GetUCPByInterval(ctx context.Context) []UCPPoint
	GetVehiclesByIntervalAndSegment(ctx context.Context, interval string) []SegmentVehicleRecord
	GetTrafficSegments(ctx context.Context) []TrafficSegment

	// GetDebugInfo returns nil on failure
	GetDebugInfo(ctx context.Context) *DebugInfo
}

// AlertSink accepts alerts coming from outside the local simulator
type AlertSink interface {
	Push(alert Alert) Alert
}
