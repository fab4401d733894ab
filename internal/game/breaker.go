package game

import (
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/roach88/yeardle/internal/config"
	"github.com/roach88/yeardle/internal/observability"
	"github.com/roach88/yeardle/internal/puzzle"
)

// newBreaker guards remote writes. Only transport-level failures count
// against it: a rejected guess or a missing row says nothing about whether
// the remote is healthy.
func newBreaker(name string, cfg config.BreakerConfig, logger *zap.Logger, metrics *observability.Collector) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
			metrics.SetBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				puzzle.IsValidationError(err) ||
				puzzle.IsNotFound(err) ||
				puzzle.IsInvariantError(err)
		},
	})
}

// call runs fn through cb, keeping fn's result type.
func call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
