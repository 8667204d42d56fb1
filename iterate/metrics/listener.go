package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenlabs/lib-iterate/iterate"
)

// unnamedTask labels events from runs started without a diagnostic name.
const unnamedTask = "unnamed"

// Listener records retry loop activity as Prometheus metrics.
type Listener struct {
	attempts       *prometheus.CounterVec
	runs           *prometheus.CounterVec
	backoffSeconds *prometheus.HistogramVec
}

// Compile-time assertion: *Listener implements iterate.Listener.
var _ iterate.Listener = (*Listener)(nil)

// NewListener builds a Listener and registers its collectors with reg.
func NewListener(namespace string, reg prometheus.Registerer) (*Listener, error) {
	l := &Listener{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "iterate",
				Name:      "attempts_total",
				Help:      "Total attempts, by task and attempt result",
			},
			[]string{"task", "result"},
		),

		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "iterate",
				Name:      "runs_total",
				Help:      "Finished runs, by task and stop reason",
			},
			[]string{"task", "reason"},
		),

		backoffSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "iterate",
				Name:      "backoff_seconds",
				Help:      "Backoff delays applied before retries",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"task"},
		),
	}

	for _, collector := range []prometheus.Collector{l.attempts, l.runs, l.backoffSeconds} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// OnAttempt implements iterate.Listener.
func (l *Listener) OnAttempt(_ context.Context, name string, rec iterate.Record) {
	task := taskLabel(name)

	result := "success"
	if !rec.Success {
		result = rec.Kind.String()
	}

	l.attempts.WithLabelValues(task, result).Inc()

	if rec.Backoff > 0 {
		l.backoffSeconds.WithLabelValues(task).Observe(rec.Backoff.Seconds())
	}
}

// OnFinish implements iterate.Listener.
func (l *Listener) OnFinish(_ context.Context, name string, out iterate.Outcome) {
	l.runs.WithLabelValues(taskLabel(name), string(out.Reason)).Inc()
}

func taskLabel(name string) string {
	if name == "" {
		return unnamedTask
	}

	return name
}
