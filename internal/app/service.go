// Package service wires the orchestrator together and exposes what the ops
// HTTP API reads.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/datemaker/internal/adapters/meet"
	"github.com/okian/datemaker/internal/adapters/mq/publisher"
	"github.com/okian/datemaker/internal/adapters/mq/queue"
	workerpool "github.com/okian/datemaker/internal/adapters/mq/worker"
	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/config"
	"github.com/okian/datemaker/internal/domain/dedupe"
	"github.com/okian/datemaker/internal/domain/matchmaking"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/domain/types"
	"github.com/okian/datemaker/internal/scheduler"
	"github.com/okian/datemaker/internal/workflow/confirmation"
	"github.com/okian/datemaker/internal/workflow/dating"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a running scheduler.
var ErrNotStarted = errors.New("service not started")

// Service owns the collaborators and the scheduler for one process.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store     repository.Store
	publisher publisher.Publisher
	provider  meet.Provider

	// sink is set when commands stay in process; consumers drain it.
	sink          *queue.InMemoryQueue
	consumers     *workerpool.Pool
	consumerCount int
	handler       workerpool.Handler

	scheduler *scheduler.Scheduler
	cfg       *config.Config
	clock     clock.Clock

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the timings and limits the workers run with.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore sets the persistence collaborator.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets the messaging collaborator. sink is the in-memory queue
// behind p when commands stay in process, nil otherwise.
func WithPublisher(p publisher.Publisher, sink *queue.InMemoryQueue) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
			s.sink = sink
		}
	}
}

// WithProvider sets the meeting-room provider.
func WithProvider(p meet.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithClock replaces the wall clock for every worker.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithConsumers sets how many consumers drain the in-memory sink and what
// they do with each command. A nil handler logs commands.
func WithConsumers(count int, h workerpool.Handler) Option {
	return func(s *Service) {
		if count > 0 {
			s.consumerCount = count
		}
		if h != nil {
			s.handler = h
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service. Missing collaborators default to in-process ones.
func New(opts ...Option) *Service {
	s := &Service{
		consumerCount: 1,
		clock:         clock.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg == nil {
		s.cfg = config.New(context.Background())
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.publisher == nil {
		s.sink = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.Messaging.QueueSize))
		s.publisher = publisher.Instrument(s.sink, s.logger.Named("publisher"))
	}
	if s.provider == nil {
		s.provider = meet.Instrument(meet.NewStaticProvider(s.cfg.Meet.StaticBaseURL))
	}
	if s.handler == nil {
		s.handler = workerpool.LogHandler(s.logger.Named("bot"))
	}
	return s
}

// Start builds the workers and starts the scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting datemaker service...")

	confirmer := confirmation.New(s.store, s.publisher,
		matchmaking.NewEngine(matchmaking.WithLogger(s.logger.Named("matchmaking"))),
		confirmation.WithClock(s.clock),
		confirmation.WithLogger(s.logger.Named("confirmation")),
		confirmation.WithPollInterval(s.cfg.Confirmation.PollInterval),
		confirmation.WithTimeout(s.cfg.Confirmation.Timeout),
		confirmation.WithDefaultCapacity(s.cfg.Matchmaking.DefaultGroupCapacity))

	dater, err := dating.New(s.store, s.publisher, s.provider,
		dating.WithClock(s.clock),
		dating.WithLogger(s.logger.Named("dating")),
		dating.WithTimings(s.cfg.Dating.RulesLeadTime, s.cfg.Dating.RoundDuration, s.cfg.Dating.BreakDuration),
		dating.WithReadinessGate(s.cfg.Dating.WaitForReady, s.cfg.Dating.ReadyPollInterval))
	if err != nil {
		return err
	}

	s.scheduler = scheduler.New(s.store,
		scheduler.RunnerFunc(func(ctx context.Context, id int64) error {
			_, err := confirmer.Run(ctx, id)
			return err
		}),
		scheduler.RunnerFunc(func(ctx context.Context, id int64) error {
			_, err := dater.Run(ctx, id)
			return err
		}),
		scheduler.WithClock(s.clock),
		scheduler.WithLogger(s.logger.Named("scheduler")),
		scheduler.WithRegistry(dedupe.NewInMemoryRegistry()),
		scheduler.WithTickInterval(s.cfg.Scheduler.TickInterval),
		scheduler.WithLeads(s.cfg.Scheduler.RegistrationLead, s.cfg.Scheduler.DatingLead),
		scheduler.WithLookBack(s.cfg.Scheduler.LookBack),
		scheduler.WithShutdownTimeout(s.cfg.Scheduler.ShutdownTimeout))

	if s.sink != nil {
		s.consumers = workerpool.NewPool(s.consumerCount, s.sink, s.handler)
		s.consumers.Start(ctx)
	}

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "datemaker service started",
		logger.String("publisher", s.publisher.Name()),
		logger.String("provider", s.provider.Name()),
		logger.Bool("debug", s.cfg.Debug))

	return nil
}

// Stop gracefully shuts down the scheduler and releases the collaborators.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping datemaker service...")

	var errs []error
	if err := s.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.consumers != nil {
		if err := s.consumers.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	s.store.Close()

	s.started = false
	s.logger.Info(ctx, "datemaker service stopped")
	return errors.Join(errs...)
}

// Tick runs one scheduler pass outside the ticker. The simulator uses it to
// step through an event.
func (s *Service) Tick(ctx context.Context) (int, error) {
	s.mu.RLock()
	sched := s.scheduler
	s.mu.RUnlock()
	if sched == nil {
		return 0, ErrNotStarted
	}
	return sched.Tick(ctx)
}

// WaitWorkers blocks until every spawned worker returned.
func (s *Service) WaitWorkers() {
	s.mu.RLock()
	sched := s.scheduler
	s.mu.RUnlock()
	if sched != nil {
		sched.Wait()
	}
}

// Store exposes the persistence collaborator.
func (s *Service) Store() repository.Store { return s.store }

// GetEvent reads one event for the ops API.
func (s *Service) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListPairs reads an event's schedule for the ops API.
func (s *Service) ListPairs(ctx context.Context, eventID int64) ([]model.Pair, error) {
	return s.store.ListPairs(ctx, eventID)
}

// ActiveWorkers lists live workers ordered by start time.
func (s *Service) ActiveWorkers() []types.WorkerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scheduler == nil {
		return []types.WorkerInfo{}
	}
	return s.scheduler.Active()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.ServiceStats{
		Publisher: s.publisher.Name(),
		Provider:  s.provider.Name(),
	}
	if !s.started {
		return stats
	}

	stats.Scheduler = s.scheduler.Stats()
	stats.UptimeSeconds = time.Since(s.startedAt).Seconds()
	if s.sink != nil {
		stats.QueueDepth = s.sink.Len(context.Background())
		metrics.UpdateQueueSize(stats.QueueDepth)
	}
	return stats
}
