// Package fetch implements the resilient GET used for every call to the traffic
// simulation backend: a per-attempt timeout, bounded exponential backoff and an
// optional circuit breaker. Every failure category is retried with the same policy;
// only caller cancellation and an open breaker stop the loop early.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Policy configures timeouts and retries.
type Policy struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns a 30s timeout, 3 attempts and 1s..5s backoff.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
	}
}

// Backoff returns the wait after the failed attempt with the given 0-based index:
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	wait := p.BaseDelay
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if wait > p.MaxDelay {
		return p.MaxDelay
	}
	return wait
}

// Observer receives attempt outcomes, typically a metrics collector.
type Observer interface {
	ObserveAttempt(outcome string, d time.Duration)
	ObserveRetry()
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher performs resilient GET requests.
type Fetcher struct {
	client    *http.Client
	policy    Policy
	breaker   *gobreaker.CircuitBreaker[[]byte]
	observer  Observer
	logger    *slog.Logger
	userAgent string
	sleepFn   SleepFunc
}

// Option is a functional option for configuring a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default http.Client. Timeouts come from the Policy,
// so the client itself should not set one.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithBreaker routes every attempt through cb. A nil breaker disables it.
func WithBreaker(cb *gobreaker.CircuitBreaker[[]byte]) Option {
	return func(f *Fetcher) {
		f.breaker = cb
	}
}

// WithObserver registers an Observer for attempts and retries.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithSleepFunc overrides the backoff wait. Intended for tests.
func WithSleepFunc(fn SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleepFn = fn
	}
}

// New creates a Fetcher. Zero policy fields fall back to DefaultPolicy values.
func New(policy Policy, opts ...Option) *Fetcher {
	def := DefaultPolicy()
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = def.MaxDelay
	}

	f := &Fetcher{
		client:  &http.Client{},
		policy:  policy,
		logger:  slog.Default(),
		sleepFn: sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewBreaker builds a circuit breaker that opens after maxFailures consecutive
// failed attempts and half-opens after cooldown. It returns nil when maxFailures is 0.
func NewBreaker(name string, maxFailures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if maxFailures == 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Policy returns the effective policy.
func (f *Fetcher) Policy() Policy {
	return f.policy
}

// Get fetches url and returns the response body. It returns the first 2xx body,
// or the last error once MaxAttempts attempts have failed.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.GetWith(ctx, url, f.policy.Timeout, f.policy.MaxAttempts)
}

// GetWith is Get with an explicit timeout and attempt budget.
func (f *Fetcher) GetWith(ctx context.Context, url string, timeout time.Duration, maxAttempts int) ([]byte, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		body, err := f.execute(ctx, url, timeout)
		if f.observer != nil {
			f.observer.ObserveAttempt(Outcome(err), time.Since(start))
		}
		if err == nil {
			return body, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrCircuitOpen) {
			return nil, err
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			wait := f.policy.Backoff(attempt)
			f.logger.Debug("retrying backend request",
				"url", url,
				"attempt", attempt+1,
				"outcome", Outcome(err),
				"wait", wait,
			)
			if f.observer != nil {
				f.observer.ObserveRetry()
			}
			if err := f.sleepFn(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

func (f *Fetcher) execute(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if f.breaker == nil {
		return f.do(ctx, url, timeout)
	}

	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.do(ctx, url, timeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, url)
	}
	return body, err
}

// do runs a single attempt. The attempt context is always cancelled before returning.
func (f *Fetcher) do(parent context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(parent, ctx, url, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(parent, ctx, url, timeout, err)
	}
	return body, nil
}

func classify(parent, attemptCtx context.Context, url string, timeout time.Duration, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, url, timeout)
	}
	return &NetworkError{URL: url, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
