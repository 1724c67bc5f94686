package fetch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the per-attempt deadline fires before a response arrives.
	ErrTimeout = errors.New("fetch: request timed out")

	// ErrCircuitOpen is returned without touching the network while the breaker is open.
	ErrCircuitOpen = errors.New("fetch: circuit breaker is open")
)

// HTTPError reports a response received with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: %s returned status %d", e.URL, e.StatusCode)
}

// NetworkError reports a failure to reach the server at all (DNS, refused connection, reset).
type NetworkError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch: network error for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Outcome labels an attempt result for logs and metrics.
func Outcome(err error) string {
	var httpErr *HTTPError
	var netErr *NetworkError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &netErr):
		return "network_error"
	default:
		return "error"
	}
}
