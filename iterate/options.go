package iterate

import (
	"context"
	"time"

	"github.com/lumenlabs/lib-iterate/iterate/backoff"
	"github.com/lumenlabs/lib-iterate/iterate/classify"
	"github.com/lumenlabs/lib-iterate/iterate/log"
)

type options struct {
	logger     log.Logger
	clock      func() time.Time
	sleep      func(context.Context, time.Duration) error
	classifier *classify.Classifier
	listeners  []Listener
	rand       func() float64
}

func defaultOptions() options {
	return options{
		logger:     log.NewNop(),
		clock:      time.Now,
		sleep:      backoff.WaitContext,
		classifier: classify.Default(),
	}
}

// Option customizes a controller at construction time.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to the no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source used for record timestamps. Inject a fake
// clock in tests to make timing assertions deterministic.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithSleep sets the function used to wait between attempts. Inject a no-op
// sleep in tests to keep retry loops fast.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithClassifier sets the error classifier. Defaults to classify.Default().
func WithClassifier(c *classify.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithListener registers a run listener. May be given multiple times;
// listeners are notified in registration order.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

// WithRand sets the uniform random source in [0, 1) used for backoff jitter.
// Inject a fixed source in tests to assert exact delays.
func WithRand(rand func() float64) Option {
	return func(o *options) {
		if rand != nil {
			o.rand = rand
		}
	}
}
