package job

import (
	"log/slog"
	"time"
)

// Default execution policy.
const (
	// DefaultTimeout is the reservation window for a claimed message. A
	// handler still running when it lapses loses its claim and the message
	// becomes deliverable again.
	DefaultTimeout = 5 * time.Minute

	// DefaultIdleInterval is how long a runner sleeps after finding its
	// partition empty.
	DefaultIdleInterval = 5 * time.Second
)

// Options holds configuration for dispatching messages.
type Options struct {
	Key   string
	Delay time.Duration
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// WithKey sets the idempotency key: a later dispatch with the same key
// replaces the pending message instead of adding a second one.
func WithKey(key string) Option {
	return optionFunc(func(o *Options) {
		o.Key = key
	})
}

// Delay schedules the message to become visible after a duration.
func Delay(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.Delay = d
	})
}

// Observer is notified after every handled message with the partition, the
// handler's verdict and the time spent handling.
type Observer func(partition string, err error, elapsed time.Duration)

// RunnerConfig holds configuration for a Runner.
type RunnerConfig struct {
	Timeout      time.Duration
	IdleInterval time.Duration
	Logger       *slog.Logger
	Observer     Observer
}

// RunnerOption configures a Runner.
type RunnerOption interface {
	ApplyRunner(*RunnerConfig)
}

type runnerOptionFunc func(*RunnerConfig)

func (f runnerOptionFunc) ApplyRunner(c *RunnerConfig) { f(c) }

// WithTimeout sets the reservation window for claimed messages.
func WithTimeout(d time.Duration) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.Timeout = d
	})
}

// WithIdleInterval sets the sleep between polls of an empty partition.
func WithIdleInterval(d time.Duration) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.IdleInterval = d
	})
}

// WithLogger sets the logger used by the runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.Logger = logger
	})
}

// WithObserver registers a telemetry callback. The runner behaves the same
// without one.
func WithObserver(fn Observer) RunnerOption {
	return runnerOptionFunc(func(c *RunnerConfig) {
		c.Observer = fn
	})
}
