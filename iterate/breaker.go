package iterate

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
)

// WrapBreaker routes each attempt through a circuit breaker, typically one
// shared across runs for the same downstream service. While the breaker is
// open, attempts fast-fail without invoking the work.
//
// Breaker fast-fail errors match no builtin classification pattern, so the
// loop keeps retrying them with backoff; pair the wrapper with a ShouldRetry
// veto built on IsBreakerOpen when the loop should stop instead.
func WrapBreaker[T any](cb *gobreaker.CircuitBreaker, work Work[T]) Work[T] {
	return func(ctx context.Context) (T, error) {
		value, err := cb.Execute(func() (any, error) {
			return work(ctx)
		})
		if err != nil {
			var zero T

			return zero, err
		}

		return value.(T), nil
	}
}

// IsBreakerOpen reports whether err is a circuit breaker fast-fail
// (open state, or half-open with its probe quota spent).
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}
