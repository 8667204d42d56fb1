package iterate

import (
	"context"
	"time"

	"github.com/lumenlabs/lib-iterate/iterate/classify"
)

// Work is one unit of retryable work. It is invoked once per attempt and may
// block; the controller imposes no timeout of its own.
type Work[T any] func(ctx context.Context) (T, error)

// StopReason identifies why a run terminated.
type StopReason string

const (
	StopSuccess        StopReason = "success"
	StopPermanentError StopReason = "permanent_error"
	StopVeto           StopReason = "veto"
	StopMaxIterations  StopReason = "max_iterations"
	StopCancelled      StopReason = "cancelled"
)

// Record describes a single attempt. Records are appended to the run history
// strictly in attempt order.
type Record struct {
	// Attempt is the 1-based attempt index.
	Attempt int

	StartedAt  time.Time
	FinishedAt time.Time

	// Success reports whether the attempt returned without error.
	Success bool

	// Err is the attempt error; set iff the attempt failed.
	Err error

	// Kind is the classification of Err; meaningful iff the attempt failed.
	Kind classify.Kind

	// Backoff is the delay applied before the next attempt. Zero when no
	// retry followed this attempt.
	Backoff time.Duration
}

// Result is the terminal outcome of one Execute call.
type Result[T any] struct {
	// Name is the diagnostic name the run was started with, if any.
	Name string

	// RunID uniquely identifies the run for log correlation.
	RunID string

	// Success reports whether any attempt succeeded.
	Success bool

	// Value is the work's return value; set iff Success.
	Value T

	// Iterations is the number of attempts made.
	Iterations int

	// History holds one Record per attempt, in order.
	History []Record

	// FinalErr is the last error encountered; set iff the run failed.
	FinalErr error

	// Cancelled reports whether cancellation terminated the run.
	Cancelled bool

	// Reason is the terminal stop reason.
	Reason StopReason
}

// Outcome is the non-generic run summary delivered to listeners.
type Outcome struct {
	Name       string
	RunID      string
	Reason     StopReason
	Iterations int
	Elapsed    time.Duration
	Cancelled  bool
	Err        error
}

// Listener observes run progress. OnAttempt fires after every attempt record
// is closed; OnFinish fires exactly once per run. Listener panics are
// recovered and logged, never aborting the run.
type Listener interface {
	OnAttempt(ctx context.Context, name string, rec Record)
	OnFinish(ctx context.Context, name string, out Outcome)
}
