package scheduler

import (
	"time"

	"github.com/okian/datemaker/internal/domain/dedupe"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used to decide what is due.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegistry replaces the live-worker registry.
func WithRegistry(r dedupe.Registry) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithTickInterval sets the polling period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithLeads sets how long before the start each worker kind is spawned.
func WithLeads(registration, dating time.Duration) Option {
	return func(s *Scheduler) {
		if registration >= 0 {
			s.registrationLead = registration
		}
		if dating >= 0 {
			s.datingLead = dating
		}
	}
}

// WithLookBack sets how far into the past events are still considered.
func WithLookBack(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.lookBack = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for running workers.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}
