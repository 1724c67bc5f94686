package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smartcity/trafficpulse/internal/domain"
	"github.com/smartcity/trafficpulse/pkg/utils"
)

// Query names used for pollers, metrics and UpdatedAt keys
const (
	QueryKPIs     = "kpis"
	QueryInterval = "interval"
	QueryChart    = "chart"
	QuerySegments = "segments"
	QueryTraffic  = "traffic"
)

// PollIntervals sets how often each dashboard view refreshes
type PollIntervals struct {
	KPIs     time.Duration
	Interval time.Duration
	Chart    time.Duration
	Segments time.Duration
	Traffic  time.Duration
}

// DefaultPollIntervals mirrors the dashboard refresh cadence
func DefaultPollIntervals() PollIntervals {
	return PollIntervals{
		KPIs:     5 * time.Second,
		Interval: 10 * time.Second,
		Chart:    10 * time.Second,
		Segments: 10 * time.Second,
		Traffic:  10 * time.Second,
	}
}

func (p PollIntervals) withDefaults() PollIntervals {
	d := DefaultPollIntervals()
	if p.KPIs <= 0 {
		p.KPIs = d.KPIs
	}
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if p.Chart <= 0 {
		p.Chart = d.Chart
	}
	if p.Segments <= 0 {
		p.Segments = d.Segments
	}
	if p.Traffic <= 0 {
		p.Traffic = d.Traffic
	}
	return p
}

type chartData struct {
	intervals []string
	ucp       []domain.UCPPoint
}

type segmentTable struct {
	interval string
	records  []domain.SegmentVehicleRecord
}

type runner interface {
	Start(ctx context.Context)
	Stop()
}

// DashboardService keeps the reconciled view state. Each view is refreshed by its
// own poller; readers always get a consistent copy.
type DashboardService struct {
	source  TrafficDataSource
	reach   *Reachability
	alerts  *AlertService
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	kpisPoller     *Poller[*domain.KPISnapshot]
	intervalPoller *Poller[domain.IntervalState]
	chartPoller    *Poller[chartData]
	segmentsPoller *Poller[segmentTable]
	trafficPoller  *Poller[[]domain.TrafficSegment]

	mu        sync.RWMutex
	kpis      *domain.KPISnapshot
	interval  domain.IntervalState
	intervals []string
	ucp       []domain.UCPPoint
	segments  segmentTable
	traffic   []domain.TrafficSegment
	updatedAt map[string]time.Time
}

// DashboardOption configures a DashboardService
type DashboardOption func(*DashboardService)

// WithDashboardLogger sets the logger
func WithDashboardLogger(l *slog.Logger) DashboardOption {
	return func(s *DashboardService) {
		s.logger = l
	}
}

// WithDashboardMetrics registers a metrics sink for the pollers
func WithDashboardMetrics(m Metrics) DashboardOption {
	return func(s *DashboardService) {
		s.metrics = m
	}
}

// WithDashboardClock replaces time.Now
func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) {
		s.now = now
	}
}

// NewDashboardService creates a new dashboard service. alerts may be nil.
func NewDashboardService(
	source TrafficDataSource,
	reach *Reachability,
	alerts *AlertService,
	intervals PollIntervals,
	opts ...DashboardOption,
) *DashboardService {
	s := &DashboardService{
		source:    source,
		reach:     reach,
		alerts:    alerts,
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		now:       time.Now,
		interval:  domain.UnavailableInterval(),
		intervals: []string{},
		ucp:       []domain.UCPPoint{},
		segments:  segmentTable{records: []domain.SegmentVehicleRecord{}},
		traffic:   []domain.TrafficSegment{},
		updatedAt: map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reach == nil {
		s.reach = NewReachability()
	}

	intervals = intervals.withDefaults()
	popts := []PollerOption{WithPollerLogger(s.logger), WithPollerMetrics(s.metrics)}

	s.kpisPoller = NewPoller(QueryKPIs, intervals.KPIs, s.source.GetKPIs, s.applyKPIs, popts...)
	s.intervalPoller = NewPoller(QueryInterval, intervals.Interval, s.source.GetCurrentInterval, s.applyInterval, popts...)
	s.chartPoller = NewPoller(QueryChart, intervals.Chart, s.fetchChart, s.applyChart, popts...)
	s.segmentsPoller = NewPoller(QuerySegments, intervals.Segments, s.fetchSegments, s.applySegments, popts...)
	s.trafficPoller = NewPoller(QueryTraffic, intervals.Traffic, s.source.GetTrafficSegments, s.applyTraffic, popts...)
	return s
}

func (s *DashboardService) runners() []runner {
	return []runner{s.kpisPoller, s.intervalPoller, s.chartPoller, s.segmentsPoller, s.trafficPoller}
}

// Start fills every view once, then launches the pollers. The first round runs
// synchronously so the reachability probe settles before the pollers race on it.
func (s *DashboardService) Start(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial dashboard refresh interrupted", "error", err)
	}
	for _, r := range s.runners() {
		r.Start(ctx)
	}
	s.logger.Info("dashboard pollers started")
}

// Stop cancels every poller and waits for in-flight fetches to finish
func (s *DashboardService) Stop() {
	var wg sync.WaitGroup
	for _, r := range s.runners() {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			r.Stop()
		}(r)
	}
	wg.Wait()
	s.logger.Info("dashboard pollers stopped")
}

// Refresh fetches every view now. The current interval goes first because the
// segment table is queried for it.
func (s *DashboardService) Refresh(ctx context.Context) error {
	s.intervalPoller.Poll(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.kpisPoller.Poll(gctx)
		return nil
	})
	g.Go(func() error {
		s.chartPoller.Poll(gctx)
		return nil
	})
	g.Go(func() error {
		s.segmentsPoller.Poll(gctx)
		return nil
	})
	g.Go(func() error {
		s.trafficPoller.Poll(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Snapshot returns a copy of the reconciled view state
func (s *DashboardService) Snapshot() domain.DashboardData {
	s.mu.RLock()
	data := domain.DashboardData{
		Connected:       s.reach.Online(),
		Interval:        s.interval,
		Intervals:       append([]string{}, s.intervals...),
		UCPSeries:       append([]domain.UCPPoint{}, s.ucp...),
		Chart:           BuildChart(s.intervals, s.ucp, s.interval),
		Segments:        append([]domain.SegmentVehicleRecord{}, s.segments.records...),
		TrafficSegments: append([]domain.TrafficSegment{}, s.traffic...),
		UpdatedAt:       make(map[string]time.Time, len(s.updatedAt)),
		Timestamp:       s.now(),
	}
	if s.kpis != nil {
		kpis := *s.kpis
		data.KPIs = &kpis
	}
	for k, v := range s.updatedAt {
		data.UpdatedAt[k] = v
	}
	s.mu.RUnlock()

	data.Alerts = []domain.Alert{}
	if s.alerts != nil {
		data.Alerts = s.alerts.List()
	}
	return data
}

// Segments returns the vehicle table for interval, filtered by segmentID when set.
// An empty interval selects the polled table for the current interval.
func (s *DashboardService) Segments(ctx context.Context, interval, segmentID string) []domain.SegmentVehicleRecord {
	var records []domain.SegmentVehicleRecord
	if interval == "" {
		s.mu.RLock()
		records = append([]domain.SegmentVehicleRecord{}, s.segments.records...)
		s.mu.RUnlock()
	} else {
		records = s.source.GetVehiclesByIntervalAndSegment(ctx, interval)
	}
	return FilterSegments(records, segmentID)
}

// Debug returns backend diagnostics, or nil
func (s *DashboardService) Debug(ctx context.Context) *domain.DebugInfo {
	return s.source.GetDebugInfo(ctx)
}

// Status reports backend reachability
func (s *DashboardService) Status() ReachabilitySnapshot {
	return s.reach.Snapshot()
}

// BuildChart returns one point per known interval. Only the current interval carries
// its UCP total; every other point is zero.
func BuildChart(intervals []string, ucp []domain.UCPPoint, current domain.IntervalState) []domain.ChartPoint {
	totals := make(map[string]float64, len(ucp))
	for _, p := range ucp {
		if _, seen := totals[p.Interval]; !seen {
			totals[p.Interval] = p.TotalUCP
		}
	}

	points := make([]domain.ChartPoint, 0, len(intervals))
	for _, label := range intervals {
		isCurrent := current.Available() && label == current.CurrentInterval
		point := domain.ChartPoint{Interval: label, IsCurrentInterval: isCurrent}
		if isCurrent {
			point.TotalUCP = utils.RoundTo(totals[label], 2)
		}
		points = append(points, point)
	}
	return points
}

// FilterSegments keeps the records for segmentID; an empty id keeps everything
func FilterSegments(records []domain.SegmentVehicleRecord, segmentID string) []domain.SegmentVehicleRecord {
	if segmentID == "" {
		return records
	}
	out := make([]domain.SegmentVehicleRecord, 0, len(records))
	for _, r := range records {
		if r.SegmentID == segmentID {
			out = append(out, r)
		}
	}
	return out
}

func (s *DashboardService) fetchChart(ctx context.Context) chartData {
	var data chartData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.intervals = s.source.GetAllIntervals(gctx)
		return nil
	})
	g.Go(func() error {
		data.ucp = s.source.GetUCPByInterval(gctx)
		return nil
	})
	_ = g.Wait()
	return data
}

func (s *DashboardService) fetchSegments(ctx context.Context) segmentTable {
	s.mu.RLock()
	current := s.interval
	s.mu.RUnlock()

	if !current.Available() {
		return segmentTable{}
	}
	return segmentTable{
		interval: current.CurrentInterval,
		records:  s.source.GetVehiclesByIntervalAndSegment(ctx, current.CurrentInterval),
	}
}

func (s *DashboardService) applyKPIs(kpis *domain.KPISnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis = kpis
	s.updatedAt[QueryKPIs] = s.now()
}

func (s *DashboardService) applyInterval(interval domain.IntervalState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	s.updatedAt[QueryInterval] = s.now()
}

func (s *DashboardService) applyChart(data chartData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals = data.intervals
	s.ucp = data.ucp
	s.updatedAt[QueryChart] = s.now()
}

func (s *DashboardService) applySegments(table segmentTable) {
	if table.interval == "" {
		// no current interval yet; keep the last table
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = table
	s.updatedAt[QuerySegments] = s.now()
}

func (s *DashboardService) applyTraffic(segments []domain.TrafficSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traffic = segments
	s.updatedAt[QueryTraffic] = s.now()
}
