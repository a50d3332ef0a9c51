package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
)

type regKey struct {
	event int64
	user  int64
}

type likeKey struct {
	event  int64
	source int64
	target int64
}

// MemStore is an in-process Store used by tests, the simulator and debug runs.
//
// Thread-safety: all methods are safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]model.Event
	regs   map[regKey]model.Registration
	users  map[int64]model.User
	pairs  map[int64][]model.Pair
	likes  map[likeKey]struct{}
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		events: make(map[int64]model.Event),
		regs:   make(map[regKey]model.Registration),
		users:  make(map[int64]model.User),
		pairs:  make(map[int64][]model.Pair),
		likes:  make(map[likeKey]struct{}),
	}
}

// Close is a no-op.
func (s *MemStore) Close() {}

func (s *MemStore) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make(map[model.EventState]bool, len(filter.States))
	for _, st := range filter.States {
		allowed[st] = true
	}
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if !filter.StartsAfter.IsZero() && !e.StartTime.After(filter.StartsAfter) {
			continue
		}
		if len(allowed) > 0 && !allowed[e.State] {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *MemStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *MemStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.State == "" {
		e.State = model.StateNotStarted
	}
	if e.ID == 0 {
		s.nextID++
		e.ID = s.nextID
	} else if _, exists := s.events[e.ID]; exists {
		return model.Event{}, fmt.Errorf("event %d: %w", e.ID, ErrAlreadyExists)
	}
	if e.ID > s.nextID {
		s.nextID = e.ID
	}
	s.events[e.ID] = e
	return e, nil
}

func (s *MemStore) SetEventState(ctx context.Context, id int64, state model.EventState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if !e.State.CanTransitionTo(state) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStateTransition, e.State, state)
	}
	e.State = state
	s.events[id] = e
	return nil
}

func (s *MemStore) ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Registration
	for k, r := range s.regs {
		if k.event == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (s *MemStore) InsertRegistration(ctx context.Context, r model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := regKey{event: r.EventID, user: r.UserID}
	if _, exists := s.regs[k]; exists {
		return fmt.Errorf("registration %d/%d: %w", r.EventID, r.UserID, ErrAlreadyExists)
	}
	if r.RegisteredAt.IsZero() {
		r.RegisteredAt = time.Now().UTC()
	}
	s.regs[k] = r
	return nil
}

func (s *MemStore) ConfirmRegistration(ctx context.Context, eventID, userID int64, at time.Time) error {
	return s.updateRegistration(eventID, userID, func(r *model.Registration) {
		if r.ConfirmedAt == nil {
			t := at
			r.ConfirmedAt = &t
		}
	})
}

func (s *MemStore) MarkConfirmationSent(ctx context.Context, eventID int64, userIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		k := regKey{event: eventID, user: id}
		if r, ok := s.regs[k]; ok {
			r.ConfirmationSent = true
			s.regs[k] = r
		}
	}
	return nil
}

func (s *MemStore) SetReady(ctx context.Context, eventID, userID int64) error {
	return s.updateRegistration(eventID, userID, func(r *model.Registration) { r.Ready = true })
}

func (s *MemStore) AreAllReady(ctx context.Context, eventID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k, r := range s.regs {
		if k.event != eventID {
			continue
		}
		n++
		if !r.Ready {
			return false, nil
		}
	}
	return n > 0, nil
}

func (s *MemStore) updateRegistration(eventID, userID int64, fn func(*model.Registration)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := regKey{event: eventID, user: userID}
	r, ok := s.regs[k]
	if !ok {
		return fmt.Errorf("registration %d/%d: %w", eventID, userID, ErrNotFound)
	}
	fn(&r)
	s.regs[k] = r
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *MemStore) UpsertUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemStore) ReplacePairs(ctx context.Context, eventID int64, pairs []model.Pair) error {
	for _, p := range pairs {
		if p.EventID != eventID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidPairSet, p.EventID, eventID)
		}
	}
	cp := append([]model.Pair(nil), pairs...)
	sortPairs(cp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cp) == 0 {
		delete(s.pairs, eventID)
		return nil
	}
	s.pairs[eventID] = cp
	return nil
}

func (s *MemStore) ListPairs(ctx context.Context, eventID int64) ([]model.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Pair(nil), s.pairs[eventID]...), nil
}

func (s *MemStore) SaveLike(ctx context.Context, l model.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[likeKey{event: l.EventID, source: l.SourceUserID, target: l.TargetUserID}] = struct{}{}
	return nil
}

func (s *MemStore) ListMatches(ctx context.Context, eventID int64) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Match
	for k := range s.likes {
		if k.event != eventID {
			continue
		}
		if _, mutual := s.likes[likeKey{event: eventID, source: k.target, target: k.source}]; mutual {
			out = append(out, model.Match{EventID: eventID, UserID: k.source, Partner: k.target})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID == out[j].UserID {
			return out[i].Partner < out[j].Partner
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func sortPairs(ps []model.Pair) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.GroupNo != b.GroupNo {
			return a.GroupNo < b.GroupNo
		}
		if a.TurnNo != b.TurnNo {
			return a.TurnNo < b.TurnNo
		}
		return a.FirstUserID < b.FirstUserID
	})
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
