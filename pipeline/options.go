package pipeline

import (
	"log/slog"
	"time"
)

// DefaultConcurrency is the batch worker count when none is configured.
const DefaultConcurrency = 3

type options struct {
	logger      *slog.Logger
	observer    Observer
	concurrency int
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		observer:    nopObserver{},
		concurrency: DefaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Option configures an Orchestrator or a Batch.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithObserver attaches stage and item hooks.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		if observer == nil {
			observer = nopObserver{}
		}
		o.observer = observer
		return nil
	}
}

// WithConcurrency sets the number of items a Batch runs at once.
// Values below 2 run items sequentially.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
		return nil
	}
}

// WithClock overrides the time source used for state timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

func applyOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}
