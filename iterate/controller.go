package iterate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/lib-iterate/iterate/backoff"
	"github.com/lumenlabs/lib-iterate/iterate/classify"
	"github.com/lumenlabs/lib-iterate/iterate/log"
)

// ErrConcurrentExecute is reported when Execute is called on a controller
// that is already running. A controller holds exactly one history/counter
// pair; construct one controller per concurrent run instead.
var ErrConcurrentExecute = errors.New("iterate: controller is already executing")

// Controller drives the attempt loop for one Execute call at a time. It can
// be Reset and reused across sequential runs, but must not run overlapping
// Execute calls.
type Controller[T any] struct {
	cfg        Config
	calc       backoff.Calculator
	classifier *classify.Classifier
	logger     log.Logger
	listeners  []Listener
	clock      func() time.Time
	sleep      func(context.Context, time.Duration) error

	mu       sync.Mutex
	history  []Record
	attempts int

	cancelled atomic.Bool
	running   atomic.Bool
}

// New constructs a controller with the given policy. Zero config fields fall
// back to defaults.
func New[T any](cfg Config, opts ...Option) *Controller[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.normalize()

	return &Controller[T]{
		cfg:        cfg,
		calc:       backoff.New(cfg.InitialBackoff, cfg.MaxBackoff, cfg.BackoffMultiplier, o.rand),
		classifier: o.classifier,
		logger:     o.logger,
		listeners:  o.listeners,
		clock:      o.clock,
		sleep:      o.sleep,
	}
}

// Execute runs the work until success, a permanent error, a retry veto,
// attempt exhaustion, or cancellation. It resets the controller state first.
// The outcome, including the full attempt history, is returned in the
// Result; Execute itself never panics on work errors.
func (c *Controller[T]) Execute(ctx context.Context, work Work[T]) Result[T] {
	return c.ExecuteNamed(ctx, "", work)
}

// ExecuteNamed is Execute with a diagnostic name carried through logs,
// listener events, and the result. The name is never interpreted.
func (c *Controller[T]) ExecuteNamed(ctx context.Context, name string, work Work[T]) Result[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	if !c.running.CompareAndSwap(false, true) {
		return Result[T]{
			Name:     name,
			FinalErr: ErrConcurrentExecute,
		}
	}
	defer c.running.Store(false)

	c.Reset()

	runID := uuid.NewString()

	logger := c.logger.With(log.String("run_id", runID))
	if name != "" {
		logger = logger.With(log.String("task", name))
	}

	start := c.clock()

	var (
		lastErr error
		reason  StopReason
	)

loop:
	for {
		// Boundary check: covers cancellation before the first attempt and
		// cancellation requested while sleeping.
		if c.cancelRequested(ctx) {
			reason = StopCancelled
			break
		}

		attempt := c.beginAttempt()
		rec := Record{Attempt: attempt, StartedAt: c.clock()}

		value, err := work(ctx)
		rec.FinishedAt = c.clock()

		if err == nil {
			rec.Success = true
			c.append(rec)
			c.fireOnIteration(ctx, logger, rec)
			c.notifyAttempt(ctx, logger, name, rec)

			logger.Log(ctx, log.LevelInfo, "work succeeded",
				log.Int("attempt", attempt),
			)

			res := Result[T]{
				Name:       name,
				RunID:      runID,
				Success:    true,
				Value:      value,
				Iterations: attempt,
				History:    c.History(),
				Reason:     StopSuccess,
			}
			c.finish(ctx, logger, name, runID, start, res.Reason, attempt, false, nil)

			return res
		}

		lastErr = err
		kind := c.classifier.Classify(err)
		rec.Err = err
		rec.Kind = kind

		switch {
		case kind == classify.KindPermanent:
			reason = StopPermanentError
		case !c.consultShouldRetry(ctx, logger, err, attempt):
			reason = StopVeto
		case attempt < c.cfg.MaxIterations && !c.cancelRequested(ctx):
			delay := c.calc.Delay(attempt)
			rec.Backoff = delay
			c.append(rec)
			c.fireOnError(ctx, logger, err, kind)
			c.notifyAttempt(ctx, logger, name, rec)

			logger.Log(ctx, log.LevelWarn, "attempt failed, backing off",
				log.Int("attempt", attempt),
				log.String("kind", kind.String()),
				log.Duration("backoff", delay),
				log.Err(err),
			)

			if err := c.sleep(ctx, delay); err != nil {
				reason = StopCancelled
				break loop
			}

			continue
		case c.cancelRequested(ctx):
			reason = StopCancelled
		default:
			reason = StopMaxIterations
		}

		c.append(rec)
		c.fireOnError(ctx, logger, err, kind)
		c.notifyAttempt(ctx, logger, name, rec)

		break
	}

	iterations := c.CurrentIteration()
	cancelled := reason == StopCancelled

	logger.Log(ctx, log.LevelError, "work failed",
		log.Int("iterations", iterations),
		log.String("reason", string(reason)),
		log.Bool("cancelled", cancelled),
		log.Err(lastErr),
	)

	res := Result[T]{
		Name:       name,
		RunID:      runID,
		Iterations: iterations,
		History:    c.History(),
		FinalErr:   lastErr,
		Cancelled:  cancelled,
		Reason:     reason,
	}
	c.finish(ctx, logger, name, runID, start, reason, iterations, cancelled, lastErr)

	return res
}

// Cancel requests cooperative cancellation. The flag is consulted at attempt
// and sleep boundaries only; an in-flight work invocation finishes naturally
// and its outcome is still recorded.
func (c *Controller[T]) Cancel() {
	c.cancelled.Store(true)
}

// IsCancelled reports whether cancellation has been requested.
func (c *Controller[T]) IsCancelled() bool {
	return c.cancelled.Load()
}

// ClassifyError exposes the controller's classifier for callers who want to
// pre-inspect errors.
func (c *Controller[T]) ClassifyError(err error) classify.Kind {
	return c.classifier.Classify(err)
}

// CurrentIteration returns the number of attempts made so far.
func (c *Controller[T]) CurrentIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

// History returns a copy of the attempt records in attempt order.
func (c *Controller[T]) History() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.history))
	copy(out, c.history)

	return out
}

// Reset clears the history, the attempt counter, and the cancellation flag.
// Execute calls it automatically at the start of every run.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	c.history = c.history[:0]
	c.attempts = 0
	c.mu.Unlock()

	c.cancelled.Store(false)
}

func (c *Controller[T]) cancelRequested(ctx context.Context) bool {
	return c.cancelled.Load() || ctx.Err() != nil
}

func (c *Controller[T]) beginAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++

	return c.attempts
}

func (c *Controller[T]) append(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, rec)
}

// consultShouldRetry applies the custom veto predicate. A panicking
// predicate is recovered, logged, and counted as consenting to retry, in
// line with the availability-biased defaults elsewhere.
func (c *Controller[T]) consultShouldRetry(ctx context.Context, logger log.Logger, err error, attempt int) bool {
	if c.cfg.ShouldRetry == nil {
		return true
	}

	allow := true

	func() {
		defer func() {
			if r := recover(); r != nil {
				allow = true

				logger.Log(ctx, log.LevelError, "ShouldRetry predicate panicked",
					log.Int("attempt", attempt),
					log.Any("panic", r),
				)
			}
		}()

		allow = c.cfg.ShouldRetry(err, attempt)
	}()

	return allow
}

func (c *Controller[T]) fireOnIteration(ctx context.Context, logger log.Logger, rec Record) {
	if c.cfg.OnIteration == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Log(ctx, log.LevelError, "OnIteration callback panicked",
				log.Int("attempt", rec.Attempt),
				log.Any("panic", r),
			)
		}
	}()

	c.cfg.OnIteration(rec)
}

func (c *Controller[T]) fireOnError(ctx context.Context, logger log.Logger, err error, kind classify.Kind) {
	if c.cfg.OnError == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Log(ctx, log.LevelError, "OnError callback panicked",
				log.Any("panic", r),
			)
		}
	}()

	c.cfg.OnError(err, kind)
}

func (c *Controller[T]) notifyAttempt(ctx context.Context, logger log.Logger, name string, rec Record) {
	for _, l := range c.listeners {
		func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Log(ctx, log.LevelError, "listener OnAttempt panicked",
						log.Any("panic", r),
					)
				}
			}()

			l.OnAttempt(ctx, name, rec)
		}(l)
	}
}

func (c *Controller[T]) finish(ctx context.Context, logger log.Logger, name, runID string, start time.Time, reason StopReason, iterations int, cancelled bool, err error) {
	out := Outcome{
		Name:       name,
		RunID:      runID,
		Reason:     reason,
		Iterations: iterations,
		Elapsed:    c.clock().Sub(start),
		Cancelled:  cancelled,
		Err:        err,
	}

	for _, l := range c.listeners {
		func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Log(ctx, log.LevelError, "listener OnFinish panicked",
						log.Any("panic", r),
					)
				}
			}()

			l.OnFinish(ctx, name, out)
		}(l)
	}
}
