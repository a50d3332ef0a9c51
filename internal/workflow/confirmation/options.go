package confirmation

import (
	"time"

	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
)

// Option configures a Worker.
type Option func(*Worker)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(w *Worker) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithPollInterval sets how often pending prompts are retried.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithTimeout sets how long before the start confirmation closes.
func WithTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.timeout = d
		}
	}
}

// WithDefaultCapacity sets the group size for events without their own.
func WithDefaultCapacity(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.defaultCapacity = n
		}
	}
}
