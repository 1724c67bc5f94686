package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller runs one query on a fixed interval. Fetches may overlap; a result is
// applied only when it is newer than the last applied one, and never after Stop.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) T
	apply    func(T)
	logger   *slog.Logger
	metrics  Metrics

	seq atomic.Uint64

	mu      sync.Mutex
	applied uint64
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// PollerOption configures a Poller
type PollerOption func(*pollerOptions)

type pollerOptions struct {
	logger  *slog.Logger
	metrics Metrics
}

// WithPollerLogger sets the logger
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(o *pollerOptions) {
		o.logger = l
	}
}

// WithPollerMetrics registers a metrics sink
func WithPollerMetrics(m Metrics) PollerOption {
	return func(o *pollerOptions) {
		o.metrics = m
	}
}

// NewPoller creates a poller named after the query it runs
func NewPoller[T any](name string, interval time.Duration, fetch func(ctx context.Context) T, apply func(T), opts ...PollerOption) *Poller[T] {
	o := pollerOptions{logger: slog.Default(), metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Name returns the query name
func (p *Poller[T]) Name() string {
	return p.name
}

// Start polls immediately and then on every tick until Stop or ctx is done.
// Calling Start more than once has no effect.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx)
	}()
}

func (p *Poller[T]) loop(ctx context.Context) {
	p.spawn(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller[T]) spawn(ctx context.Context) {
	seq := p.seq.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.deliver(ctx, seq, p.fetch(ctx))
	}()
}

// Poll runs one fetch synchronously and reports whether its result was applied
func (p *Poller[T]) Poll(ctx context.Context) bool {
	seq := p.seq.Add(1)
	return p.deliver(ctx, seq, p.fetch(ctx))
}

// Stop cancels in-flight fetches and waits for them to finish.
// Results that arrive afterwards are discarded.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Poller[T]) deliver(ctx context.Context, seq uint64, v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || ctx.Err() != nil || seq <= p.applied {
		p.logger.Debug("poll result discarded", "query", p.name, "seq", seq, "applied", p.applied)
		p.metrics.ObservePoll(p.name, false)
		return false
	}

	p.apply(v)
	p.applied = seq
	p.metrics.ObservePoll(p.name, true)
	return true
}
