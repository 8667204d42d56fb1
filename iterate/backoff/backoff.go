package backoff

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand/v2"
	"time"
)

// jitterBand is the fraction of the capped delay that jitter may add or
// remove.
const jitterBand = 0.1

// Calculator computes the delay before the attempt that follows a failure.
type Calculator struct {
	// Initial is the delay after the first failed attempt.
	Initial time.Duration
	// Max caps the pre-jitter delay.
	Max time.Duration
	// Multiplier is the per-attempt growth factor. Values below 1 are
	// treated as 1 (constant backoff).
	Multiplier float64

	// rand returns a uniform value in [0, 1).
	rand func() float64
}

// New builds a Calculator. A nil random source falls back to a
// crypto-seeded generator.
func New(initial, max time.Duration, multiplier float64, rand func() float64) Calculator {
	if rand == nil {
		rand = seededRand()
	}

	return Calculator{
		Initial:    initial,
		Max:        max,
		Multiplier: multiplier,
		rand:       rand,
	}
}

// Delay returns the jittered delay to apply after the given failed attempt,
// rounded to the nearest millisecond. attempt is the 1-based index of the
// attempt that just failed; values below 1 are treated as 1.
func (c Calculator) Delay(attempt int) time.Duration {
	raw := c.Raw(attempt)
	if raw <= 0 {
		return 0
	}

	// Uniform in [-1, 1], scaled to 10% of the capped value.
	unit := 2*c.rng()() - 1
	jitter := time.Duration(unit * jitterBand * float64(raw))

	d := (raw + jitter).Round(time.Millisecond)
	if d < 0 {
		return 0
	}

	return d
}

// Raw returns the pre-jitter delay for the given failed attempt:
// min(Initial * Multiplier^(attempt-1), Max). Monotonically non-decreasing
// in attempt.
func (c Calculator) Raw(attempt int) time.Duration {
	if c.Initial <= 0 {
		return 0
	}

	if attempt < 1 {
		attempt = 1
	}

	multiplier := c.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	raw := float64(c.Initial) * math.Pow(multiplier, float64(attempt-1))
	if raw > float64(math.MaxInt64) {
		raw = float64(math.MaxInt64)
	}

	d := time.Duration(raw)
	if c.Max > 0 && d > c.Max {
		return c.Max
	}

	return d
}

func (c Calculator) rng() func() float64 {
	if c.rand != nil {
		return c.rand
	}

	return seededRand()
}

// seededRand builds a PCG generator seeded from crypto/rand, falling back to
// the current time if entropy is unavailable.
func seededRand() func() float64 {
	var seed [8]byte

	if _, err := crand.Read(seed[:]); err != nil {
		return mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), 0)).Float64
	}

	return mrand.New(
		mrand.NewPCG(binary.LittleEndian.Uint64(seed[:]), 0),
	).Float64 // #nosec G404 -- jitter does not need cryptographic randomness
}

// WaitContext sleeps for the given duration but respects context
// cancellation. Returns nil if the sleep completes, or the context error if
// cancelled first. Zero and negative durations return immediately.
func WaitContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)

	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
