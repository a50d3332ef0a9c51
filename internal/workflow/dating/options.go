package dating

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

// WithTimings sets the rules lead time and the round and break lengths.
// Non-positive values keep the defaults.
func WithTimings(rulesLead, round, pause time.Duration) Option {
	return func(w *Worker) {
		if rulesLead > 0 {
			w.rulesLead = rulesLead
		}
		if round > 0 {
			w.roundDuration = round
		}
		if pause > 0 {
			w.breakDuration = pause
		}
	}
}

// WithReadinessGate makes groups wait until every registrant reported ready
// or the event start passed, polling every interval.
func WithReadinessGate(enabled bool, interval time.Duration) Option {
	return func(w *Worker) {
		w.waitForReady = enabled
		if interval > 0 {
			w.readyPoll = interval
		}
	}
}
