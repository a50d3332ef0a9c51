// Package scheduler polls the event table and spawns one worker per event
// and phase when the event is due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/datemaker/internal/domain/dedupe"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/domain/types"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	defaultTickInterval     = 59 * time.Second
	defaultRegistrationLead = 24 * time.Hour
	defaultDatingLead       = 10 * time.Minute
	defaultLookBack         = time.Hour
	defaultShutdownTimeout  = 30 * time.Second
)

// EventLister is the slice of persistence the scheduler reads.
type EventLister interface {
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
}

// Runner runs one phase of one event to completion.
type Runner interface {
	Run(ctx context.Context, eventID int64) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, eventID int64) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, eventID int64) error { return f(ctx, eventID) }

// Scheduler spawns confirmation and dating workers for due events.
//
// Thread-safety: all methods are safe for concurrent use.
type Scheduler struct {
	events   EventLister
	runners  map[types.WorkerKind]Runner
	registry dedupe.Registry
	clock    clock.Clock
	log      logger.Logger

	tickInterval     time.Duration
	registrationLead time.Duration
	datingLead       time.Duration
	lookBack         time.Duration
	shutdownTimeout  time.Duration

	// workers run under base; Stop cancels it.
	base      context.Context
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	startOnce atomic.Bool
	loopDone  chan struct{}

	ticks       atomic.Int64
	started     atomic.Int64
	failed      atomic.Int64
	skippedLive atomic.Int64
}

// New creates a scheduler with configuration options.
func New(events EventLister, confirmation, dating Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		events: events,
		runners: map[types.WorkerKind]Runner{
			types.KindConfirmation: confirmation,
			types.KindDating:       dating,
		},
		clock:            clock.New(),
		tickInterval:     defaultTickInterval,
		registrationLead: defaultRegistrationLead,
		datingLead:       defaultDatingLead,
		lookBack:         defaultLookBack,
		shutdownTimeout:  defaultShutdownTimeout,
		loopDone:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = dedupe.NewInMemoryRegistry()
	}
	if s.log == nil {
		s.log = logger.Get().Named("scheduler")
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start ticks once right away and then every tick interval until ctx ends
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.startOnce.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	context.AfterFunc(ctx, s.cancel)

	go func() {
		defer close(s.loopDone)
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			if _, err := s.Tick(s.base); err != nil {
				s.log.Error(s.base, "tick failed", logger.Error(err))
			}
			select {
			case <-s.base.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	s.log.Info(ctx, "scheduler started", logger.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop cancels every worker and waits for them up to the shutdown timeout.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	if s.startOnce.Load() {
		<-s.loopDone
	}

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		s.log.Info(ctx, "scheduler stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	s.log.Warn(ctx, "shutdown timed out", logger.Int("active", len(s.registry.Snapshot())))
	return ErrShutdownTimeout
}

// Wait blocks until every spawned worker returned.
func (s *Scheduler) Wait() { s.workers.Wait() }

// Tick runs one pass over the event table and returns how many workers it
// spawned.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	s.ticks.Add(1)
	metrics.RecordSchedulerTick()

	now := s.clock.Now()
	events, err := s.events.ListEvents(ctx, model.EventFilter{
		StartsAfter: now.Add(-s.lookBack),
		States: []model.EventState{
			model.StateNotStarted,
			model.StateRegistrationConfirmation,
			model.StateReady,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	spawned := 0
	for _, ev := range events {
		kind, due := s.due(ev, now)
		if !due {
			continue
		}
		metrics.RecordDueEvent(string(kind))
		if s.spawn(ctx, kind, ev, now) {
			spawned++
		}
	}
	s.log.Debug(ctx, "tick", logger.Int("events", len(events)), logger.Int("spawned", spawned))
	return spawned, nil
}

// due decides which worker, if any, an event needs now.
func (s *Scheduler) due(ev model.Event, now time.Time) (types.WorkerKind, bool) {
	switch ev.State {
	case model.StateNotStarted, model.StateRegistrationConfirmation:
		return types.KindConfirmation, !now.Before(ev.StartTime.Add(-s.registrationLead))
	case model.StateReady:
		return types.KindDating, !now.Before(ev.StartTime.Add(-s.datingLead))
	default:
		return "", false
	}
}

func (s *Scheduler) spawn(ctx context.Context, kind types.WorkerKind, ev model.Event, now time.Time) bool {
	if s.base.Err() != nil {
		return false
	}
	info := types.WorkerInfo{RunID: uuid.NewString(), Kind: kind, EventID: ev.ID, StartedAt: now}
	if err := s.registry.Claim(ctx, info); err != nil {
		if errors.Is(err, dedupe.ErrAlreadyLive) {
			s.skippedLive.Add(1)
			return false
		}
		s.log.Warn(ctx, "cannot claim worker slot", logger.EventID(ev.ID), logger.String("kind", string(kind)), logger.Error(err))
		return false
	}

	s.started.Add(1)
	metrics.RecordWorkerStarted(string(kind))
	s.workers.Add(1)
	go s.run(info)
	return true
}

// run executes one worker in isolation: panics and errors are logged and
// counted, never propagated.
func (s *Scheduler) run(info types.WorkerInfo) {
	ctx := s.base
	log := s.log.With(logger.EventID(info.EventID), logger.String("kind", string(info.Kind)), logger.String("run_id", info.RunID))
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
		failed := err != nil && !errors.Is(err, context.Canceled)
		if failed {
			s.failed.Add(1)
			metrics.RecordErrorByComponent("scheduler", string(info.Kind))
			log.Error(ctx, "worker failed", logger.Error(err))
		} else {
			log.Info(ctx, "worker done", logger.Duration("took", time.Since(start)))
		}
		metrics.RecordWorkerFinished(string(info.Kind), failed, time.Since(start))
		s.registry.Release(context.WithoutCancel(ctx), info.Kind, info.EventID)
		s.workers.Done()
	}()

	log.Info(ctx, "worker started")
	err = s.runners[info.Kind].Run(ctx, info.EventID)
}

// Active lists live workers ordered by start time.
func (s *Scheduler) Active() []types.WorkerInfo {
	return s.registry.Snapshot()
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() types.SchedulerStats {
	return types.SchedulerStats{
		Ticks:          s.ticks.Load(),
		WorkersStarted: s.started.Load(),
		WorkersFailed:  s.failed.Load(),
		WorkersActive:  int(s.registry.Size()),
		SkippedDueLive: s.skippedLive.Load(),
	}
}
