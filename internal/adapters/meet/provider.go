// Package meet creates and tears down the video rooms dates happen in.
package meet

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/metrics"
)

// Provider manages meeting spaces.
type Provider interface {
	CreateSpace(ctx context.Context) (model.MeetingSpace, error)
	// MakePublic lets anyone with the link join without knocking.
	MakePublic(ctx context.Context, space model.MeetingSpace) error
	// EndActiveCall disconnects everybody from the space's current conference.
	EndActiveCall(ctx context.Context, space model.MeetingSpace) error
	Name() string
}

// Sentinel errors.
var (
	ErrUnknownDriver  = errors.New("unknown meeting provider")
	ErrNoCredentials  = errors.New("meeting provider credentials file not set")
	ErrNoActiveCall   = errors.New("no active conference")
	ErrSpaceNotPublic = errors.New("space could not be made public")
)

// CreatePublicSpace creates a space and opens it to anyone with the link.
func CreatePublicSpace(ctx context.Context, p Provider) (model.MeetingSpace, error) {
	space, err := p.CreateSpace(ctx)
	if err != nil {
		return model.MeetingSpace{}, fmt.Errorf("create space: %w", err)
	}
	if err := p.MakePublic(ctx, space); err != nil {
		return model.MeetingSpace{}, fmt.Errorf("%w: %s: %w", ErrSpaceNotPublic, space.Name, err)
	}
	return space, nil
}

// Instrumented counts calls and failures per operation.
type Instrumented struct {
	next Provider
}

// Instrument wraps p with metrics.
func Instrument(p Provider) *Instrumented { return &Instrumented{next: p} }

func (i *Instrumented) CreateSpace(ctx context.Context) (model.MeetingSpace, error) {
	s, err := i.next.CreateSpace(ctx)
	metrics.RecordProviderCall("create_space", err)
	return s, err
}

func (i *Instrumented) MakePublic(ctx context.Context, space model.MeetingSpace) error {
	err := i.next.MakePublic(ctx, space)
	metrics.RecordProviderCall("make_public", err)
	return err
}

func (i *Instrumented) EndActiveCall(ctx context.Context, space model.MeetingSpace) error {
	err := i.next.EndActiveCall(ctx, space)
	metrics.RecordProviderCall("end_active_call", err)
	return err
}

func (i *Instrumented) Name() string { return i.next.Name() }
