package iterate

import (
	"time"

	"github.com/lumenlabs/lib-iterate/iterate/classify"
)

const (
	defaultMaxIterations     = 10
	defaultInitialBackoff    = 100 * time.Millisecond
	defaultMaxBackoff        = 30 * time.Second
	defaultBackoffMultiplier = 2.0
)

// Config holds the retry policy for a controller. A Config is read once at
// construction and never mutated by the controller.
type Config struct {
	// MaxIterations bounds the number of attempts. Zero or negative values
	// fall back to the default of 10.
	MaxIterations int

	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the pre-jitter delay between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier is the per-attempt growth factor; values below 1 are
	// treated as 1.
	BackoffMultiplier float64

	// OnIteration, when set, is invoked with the terminal record of a
	// successful run. It never fires for failed attempts.
	OnIteration func(Record)

	// OnError, when set, is invoked for every failed attempt with the error
	// and its classification.
	OnError func(error, classify.Kind)

	// ShouldRetry, when set, is consulted after every non-permanent failure
	// with the error and the 1-based attempt index. Returning false vetoes
	// further retries regardless of classification.
	ShouldRetry func(err error, attempt int) bool
}

// DefaultConfig provides balanced settings for most work.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     defaultMaxIterations,
		InitialBackoff:    defaultInitialBackoff,
		MaxBackoff:        defaultMaxBackoff,
		BackoffMultiplier: defaultBackoffMultiplier,
	}
}

// AggressiveConfig retries often with short delays, for cheap idempotent work
// behind flaky transports.
func AggressiveConfig() Config {
	return Config{
		MaxIterations:     20,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// PatientConfig retries few times with long delays, for expensive work
// against slow-recovering dependencies.
func PatientConfig() Config {
	return Config{
		MaxIterations:     5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        2 * time.Minute,
		BackoffMultiplier: 3,
	}
}

// normalize fills zero and invalid values with defaults.
func (c Config) normalize() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}

	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}

	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = defaultBackoffMultiplier
	} else if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 1
	}

	return c
}
