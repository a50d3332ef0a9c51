// Package worker drains the in-memory command queue with a pool of consumers.
// It stands in for the bot when commands are not sent to an external bus.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Handler reacts to one command.
type Handler interface {
	Handle(ctx context.Context, cmd model.Command) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd model.Command) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, cmd model.Command) error { return f(ctx, cmd) }

// LogHandler writes every command to the log.
func LogHandler(log logger.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, cmd model.Command) error {
		log.Info(ctx, "bot command",
			logger.String("command", string(cmd.Name)),
			logger.EventID(cmd.EventID),
			logger.UserID(cmd.UserID),
			logger.Any("payload", cmd.Payload))
		return nil
	})
}

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Command
}

// Worker consumes commands until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker hands commands from a Queue to a Handler.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	handled *atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		handled:  new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("consumer"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			if err := w.process(ctx, cmd); err != nil {
				w.logger.Error(ctx, "error handling command", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, cmd model.Command) error { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	start := time.Now()
	err := w.handler.Handle(ctx, cmd)
	metrics.RecordCommandHandled(string(cmd.Name), float64(time.Since(start).Milliseconds()), err)
	w.handled.Add(1)
	if err != nil {
		metrics.RecordErrorByComponent("consumer", "handler_error")
		return fmt.Errorf("handle %s for user %d: %w", cmd.Name, cmd.UserID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}

	// Throughput tracking, shared with every worker
	handled           *atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		shutdown:          make(chan struct{}),
		handled:           new(atomic.Int64),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("consumer-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, handler, append(opts, WithName("consumer-"+strconv.Itoa(i)))...)
		w.handled = pool.handled
		pool.workers[i] = w
	}

	metrics.UpdateConsumerActiveCount(workerCount)
	metrics.UpdateConsumerMessagesPerSecond(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

// Handled returns how many commands the pool has processed.
func (p *Pool) Handled() int64 { return p.handled.Load() }

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	last := int64(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			last = p.updateMetrics(last)
		}
	}
}

func (p *Pool) updateMetrics(last int64) int64 {
	now := time.Now()
	total := p.handled.Load()
	if diff := now.Sub(p.lastProcessedTime).Seconds(); diff > 0 {
		metrics.UpdateConsumerMessagesPerSecond(float64(total-last) / diff)
	}
	p.lastProcessedTime = now
	return total
}

// Shutdown closes the queue, stops every worker and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "consumer shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateConsumerActiveCount(0)

	return nil
}
