package queue

import (
	"log/slog"
	"time"
)

const (
	// DefaultWorkers is the number of jobs run at once.
	DefaultWorkers = 2

	// DefaultTimeout bounds the wall-clock time of one job.
	DefaultTimeout = 30 * time.Minute

	// DefaultResultTTL is how long succeeded jobs stay inspectable.
	DefaultResultTTL = 24 * time.Hour

	// DefaultFailureTTL is how long failed jobs stay inspectable.
	DefaultFailureTTL = 7 * 24 * time.Hour
)

// Observer is notified when jobs start and finish. Hooks must not block.
type Observer interface {
	JobStarted(job Job)
	JobFinished(job Job)
}

type nopObserver struct{}

func (nopObserver) JobStarted(Job)  {}
func (nopObserver) JobFinished(Job) {}

type options struct {
	workers    int
	timeout    time.Duration
	resultTTL  time.Duration
	failureTTL time.Duration
	logger     *slog.Logger
	observer   Observer
	now        func() time.Time
}

// Option configures a Queue.
type Option func(*options)

// WithWorkers sets how many jobs run concurrently. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = max(n, 1)
	}
}

// WithTimeout sets the per-job wall-clock timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetention sets how long finished jobs are kept, for successes and
// failures respectively. Zero keeps the default.
func WithRetention(result, failure time.Duration) Option {
	return func(o *options) {
		if result > 0 {
			o.resultTTL = result
		}
		if failure > 0 {
			o.failureTTL = failure
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver attaches job hooks.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithClock overrides the time source, for retention tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
