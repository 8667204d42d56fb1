//go:build unit

package iterate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(consecutive uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutive
		},
		Timeout: time.Hour,
	})
}

func TestWrapBreakerPassesValueThrough(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(3)

	work := WrapBreaker(cb, func(context.Context) (string, error) {
		return "ok", nil
	})

	value, err := work(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestWrapBreakerPropagatesWorkError(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(3)
	boom := errors.New("boom")

	work := WrapBreaker(cb, func(context.Context) (int, error) {
		return 0, boom
	})

	_, err := work(context.Background())

	require.ErrorIs(t, err, boom)
	assert.False(t, IsBreakerOpen(err))
}

func TestWrapBreakerFastFailsWhenOpen(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(2)
	boom := errors.New("boom")

	calls := 0

	work := WrapBreaker(cb, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})

	// Two failures trip the breaker.
	_, _ = work(context.Background())
	_, _ = work(context.Background())

	_, err := work(context.Background())

	require.Error(t, err)
	assert.True(t, IsBreakerOpen(err))
	assert.Equal(t, 2, calls)
}

// An open breaker paired with an IsBreakerOpen veto stops the loop instead
// of spinning on fast-fail errors.
func TestBreakerVetoStopsLoop(t *testing.T) {
	t.Parallel()

	var delays []time.Duration

	cb := newTestBreaker(2)
	boom := errors.New("boom")

	cfg := DefaultConfig()
	cfg.ShouldRetry = func(err error, _ int) bool {
		return !IsBreakerOpen(err)
	}

	c := New[int](cfg, fastOpts(&delays)...)

	res := c.Execute(context.Background(), WrapBreaker(cb, func(context.Context) (int, error) {
		return 0, boom
	}))

	assert.False(t, res.Success)
	assert.Equal(t, StopVeto, res.Reason)
	assert.Equal(t, 3, res.Iterations)
	assert.True(t, IsBreakerOpen(res.FinalErr))
}
