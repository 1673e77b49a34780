package riak

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/riak/pbc"
)

// NewCircuitBreakerConfig returns a function creating one circuit breaker per
// node. The breaker trips when at least 60% of 3 or more requests failed.
//
// Errors returned by the node itself (ServerError, such as a failed
// precondition) and local errors (a missing context or key) are not
// counted as failures: the node answered, or was never asked.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(node string) *gobreaker.CircuitBreaker[bool] {
	return func(node string) *gobreaker.CircuitBreaker[bool] {
		return gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
			Name:        node,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: isBreakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("riak: circuit breaker state changed", "node", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var serverErr *pbc.ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	return isLocalError(err)
}

// isLocalError reports errors raised before anything was sent.
func isLocalError(err error) bool {
	var conflict *ConflictError
	return errors.Is(err, ErrContextRequired) ||
		errors.Is(err, ErrDefaultBucketType) ||
		errors.Is(err, ErrNoOperation) ||
		errors.Is(err, ErrKeyRequired) ||
		errors.As(err, &conflict)
}
