//go:build unit

package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// midpoint pins jitter to zero: 2*0.5 - 1 == 0.
func midpoint() float64 { return 0.5 }

func TestRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		initial    time.Duration
		max        time.Duration
		multiplier float64
		attempt    int
		expected   time.Duration
	}{
		{
			name:       "first failure returns initial",
			initial:    100 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 2,
			attempt:    1,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "second failure doubles",
			initial:    100 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 2,
			attempt:    2,
			expected:   200 * time.Millisecond,
		},
		{
			name:       "fourth failure is 8x",
			initial:    100 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 2,
			attempt:    4,
			expected:   800 * time.Millisecond,
		},
		{
			name:       "capped at max",
			initial:    100 * time.Millisecond,
			max:        1 * time.Second,
			multiplier: 2,
			attempt:    20,
			expected:   1 * time.Second,
		},
		{
			name:       "multiplier one is constant",
			initial:    250 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 1,
			attempt:    9,
			expected:   250 * time.Millisecond,
		},
		{
			name:       "multiplier below one normalized to constant",
			initial:    250 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 0.5,
			attempt:    3,
			expected:   250 * time.Millisecond,
		},
		{
			name:       "attempt below one treated as one",
			initial:    100 * time.Millisecond,
			max:        30 * time.Second,
			multiplier: 2,
			attempt:    0,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "zero initial returns zero",
			initial:    0,
			max:        30 * time.Second,
			multiplier: 2,
			attempt:    5,
			expected:   0,
		},
		{
			name:       "huge attempt does not overflow",
			initial:    time.Second,
			max:        time.Minute,
			multiplier: 10,
			attempt:    500,
			expected:   time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calc := New(tt.initial, tt.max, tt.multiplier, midpoint)
			assert.Equal(t, tt.expected, calc.Raw(tt.attempt))
		})
	}
}

func TestRawMonotonic(t *testing.T) {
	t.Parallel()

	calc := New(50*time.Millisecond, 10*time.Second, 1.7, midpoint)

	prev := time.Duration(0)
	for attempt := 1; attempt <= 30; attempt++ {
		raw := calc.Raw(attempt)
		assert.GreaterOrEqual(t, raw, prev, "attempt %d", attempt)
		prev = raw
	}
}

func TestDelayJitterBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rand     float64
		expected time.Duration
	}{
		{name: "lower bound is -10%", rand: 0, expected: 900 * time.Millisecond},
		{name: "midpoint is unjittered", rand: 0.5, expected: 1000 * time.Millisecond},
		{name: "upper edge approaches +10%", rand: 0.999999, expected: 1100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calc := New(time.Second, 30*time.Second, 2, func() float64 { return tt.rand })
			assert.Equal(t, tt.expected, calc.Delay(1))
		})
	}
}

// Jitter is applied after the cap, so the final delay may exceed Max by up to
// 10%.
func TestDelayJitterAppliedAfterCap(t *testing.T) {
	t.Parallel()

	calc := New(time.Second, 2*time.Second, 2, func() float64 { return 0.999999 })

	// Attempt 10 is far past the cap; pre-jitter value is exactly Max.
	d := calc.Delay(10)
	assert.Greater(t, d, 2*time.Second)
	assert.LessOrEqual(t, d, 2200*time.Millisecond)
}

func TestDelayNeverNegative(t *testing.T) {
	t.Parallel()

	calc := New(time.Millisecond, time.Second, 2, func() float64 { return 0 })

	for attempt := 1; attempt <= 15; attempt++ {
		assert.GreaterOrEqual(t, calc.Delay(attempt), time.Duration(0))
	}
}

func TestDelayDefaultRandStaysInBand(t *testing.T) {
	t.Parallel()

	calc := New(time.Second, 30*time.Second, 2, nil)

	for i := 0; i < 100; i++ {
		d := calc.Delay(1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestWaitContextCompletes(t *testing.T) {
	t.Parallel()

	start := time.Now()
	err := WaitContext(context.Background(), 10*time.Millisecond)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestWaitContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitContext(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitContextZeroDuration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Non-positive durations return before checking the context.
	assert.NoError(t, WaitContext(ctx, 0))
	assert.NoError(t, WaitContext(ctx, -time.Second))
}
