// Package dedupe tracks which per-event workers are alive so the scheduler
// never runs two workers of the same kind for one event.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/datemaker/internal/domain/types"
)

// Sentinel errors returned by Claim.
var (
	ErrAlreadyLive  = errors.New("worker already live")
	ErrRegistryFull = errors.New("worker registry full")
)

// Registry records live workers keyed by kind and event.
type Registry interface {
	// Claim atomically registers info unless a worker with the same key is live.
	Claim(ctx context.Context, info types.WorkerInfo) error

	// Release forgets the worker so the event can be picked up again.
	Release(ctx context.Context, kind types.WorkerKind, eventID int64)

	// IsLive reports whether a worker for the key is registered.
	IsLive(kind types.WorkerKind, eventID int64) bool

	// Snapshot lists live workers ordered by start time.
	Snapshot() []types.WorkerInfo

	Size() int64
}

// Key renders the registry key for a worker.
func Key(kind types.WorkerKind, eventID int64) string {
	return fmt.Sprintf("%s:%d", kind, eventID)
}

// inMemoryRegistry implements Registry with a map guarded by a mutex.
// maxSize <= 0 means unbounded.
type inMemoryRegistry struct {
	mu      sync.RWMutex
	live    map[string]types.WorkerInfo
	maxSize int
	size    atomic.Int64
}

// NewInMemoryRegistry creates a registry with configuration options.
func NewInMemoryRegistry(opts ...Option) Registry {
	r := &inMemoryRegistry{
		maxSize: 0,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.live = make(map[string]types.WorkerInfo)
	return r
}

func (r *inMemoryRegistry) Claim(ctx context.Context, info types.WorkerInfo) error {
	key := Key(info.Kind, info.EventID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.live[key]; exists {
		return ErrAlreadyLive
	}
	if r.maxSize > 0 && len(r.live) >= r.maxSize {
		return ErrRegistryFull
	}
	r.live[key] = info
	r.size.Add(1)
	return nil
}

func (r *inMemoryRegistry) Release(ctx context.Context, kind types.WorkerKind, eventID int64) {
	key := Key(kind, eventID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.live[key]; exists {
		delete(r.live, key)
		r.size.Add(-1)
	}
}

func (r *inMemoryRegistry) IsLive(kind types.WorkerKind, eventID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[Key(kind, eventID)]
	return ok
}

func (r *inMemoryRegistry) Snapshot() []types.WorkerInfo {
	r.mu.RLock()
	out := make([]types.WorkerInfo, 0, len(r.live))
	for _, info := range r.live {
		out = append(out, info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return Key(out[i].Kind, out[i].EventID) < Key(out[j].Kind, out[j].EventID)
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Size returns the number of live workers.
func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}
