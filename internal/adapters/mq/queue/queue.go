// Package queue is a bounded in-memory command queue. It backs the memory
// messaging driver and lets tests and the simulator read what the workers sent.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
)

// Command is the payload type flowing through the queue.
type Command = model.Command

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Publish enqueues cmd, failing with ErrQueueFull or ErrQueueClosed.
	Publish(ctx context.Context, cmd Command) error

	// Dequeue returns a channel that receives commands as they become available.
	// The channel is closed when the queue is closed or ctx ends.
	Dequeue(ctx context.Context) <-chan Command

	// Drain removes and returns every queued command without blocking.
	Drain() []Command

	// Len returns the current number of queued commands.
	Len(ctx context.Context) int

	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands   chan Command
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}

	q.commands = make(chan Command, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Publish adds a command to the queue.
func (q *InMemoryQueue) Publish(ctx context.Context, cmd Command) error { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrQueueClosed
	}

	if len(q.commands) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return ErrQueueFull
	}

	select {
	case q.commands <- cmd:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrQueueFull
	}
}

// Dequeue returns a channel that will receive commands as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		for {
			select {
			case cmd, ok := <-q.commands:
				if !ok {
					return
				}
				select {
				case out <- cmd:
					metrics.RecordQueueDequeue()
					q.updateGauges()
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Drain removes and returns every queued command without blocking.
func (q *InMemoryQueue) Drain() []Command {
	var out []Command
	for {
		select {
		case cmd, ok := <-q.commands:
			if !ok {
				q.updateGauges()
				return out
			}
			metrics.RecordQueueDequeue()
			out = append(out, cmd)
		default:
			q.updateGauges()
			return out
		}
	}
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.updateGauges()
}

func (q *InMemoryQueue) updateGauges() int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue. Queued commands stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.commands)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Name identifies the driver in stats.
func (q *InMemoryQueue) Name() string { return "memory" }

// Wait blocks until at least n commands are queued or timeout passes and
// reports whether the count was reached.
func (q *InMemoryQueue) Wait(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if len(q.commands) >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
