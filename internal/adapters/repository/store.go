// Package repository persists dating events, registrations, profiles and
// pairing schedules.
package repository

import (
	"context"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/metrics"
)

// Store is the persistence collaborator shared by the scheduler and workers.
type Store interface {
	// ListEvents returns events matching filter ordered by start time.
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// GetEvent returns ErrNotFound for unknown events.
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	// CreateEvent inserts an event and returns it with its assigned ID.
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	// SetEventState writes state if the current state may transition to it,
	// otherwise it returns model.ErrInvalidStateTransition.
	SetEventState(ctx context.Context, id int64, state model.EventState) error

	ListRegistrations(ctx context.Context, eventID int64) ([]model.Registration, error)
	InsertRegistration(ctx context.Context, r model.Registration) error
	ConfirmRegistration(ctx context.Context, eventID, userID int64, at time.Time) error
	// MarkConfirmationSent flags the confirmation prompt as delivered for userIDs.
	MarkConfirmationSent(ctx context.Context, eventID int64, userIDs []int64) error
	SetReady(ctx context.Context, eventID, userID int64) error
	// AreAllReady reports whether every registration of the event is ready.
	// An event without registrations is not ready.
	AreAllReady(ctx context.Context, eventID int64) (bool, error)

	// GetUser returns ErrNotFound for unknown users.
	GetUser(ctx context.Context, id int64) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) error

	// ReplacePairs atomically swaps the event's schedule for pairs.
	ReplacePairs(ctx context.Context, eventID int64, pairs []model.Pair) error
	// ListPairs returns the schedule ordered by group, turn and first user.
	ListPairs(ctx context.Context, eventID int64) ([]model.Pair, error)

	SaveLike(ctx context.Context, l model.Like) error
	// ListMatches returns one row per user and mutually liked partner.
	ListMatches(ctx context.Context, eventID int64) ([]model.Match, error)

	Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
