package iterate

import (
	"context"
	"errors"
)

// ErrExhausted is returned by Run when a run fails without recording any
// error (for example, cancellation before the first attempt).
var ErrExhausted = errors.New("iterate: attempts exhausted")

// Run is the exception-style convenience wrapper around a one-shot
// controller: it returns the work's value on success, and the final error on
// failure, instead of a Result for inspection.
func Run[T any](ctx context.Context, cfg Config, work Work[T], opts ...Option) (T, error) {
	return RunNamed(ctx, "", cfg, work, opts...)
}

// RunNamed is Run with a diagnostic name carried through logs and listener
// events.
func RunNamed[T any](ctx context.Context, name string, cfg Config, work Work[T], opts ...Option) (T, error) {
	c := New[T](cfg, opts...)

	res := c.ExecuteNamed(ctx, name, work)
	if res.Success {
		return res.Value, nil
	}

	if res.FinalErr != nil {
		return res.Value, res.FinalErr
	}

	return res.Value, ErrExhausted
}
