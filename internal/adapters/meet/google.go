package meet

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	meetapi "google.golang.org/api/meet/v2"
	"google.golang.org/api/option"

	"github.com/okian/datemaker/internal/domain/model"
)

const (
	scopeSpacesCreated = "https://www.googleapis.com/auth/meetings.space.created"
	accessOpen         = "OPEN"
	entryAll           = "ALL"
	publicUpdateMask   = "config.accessType,config.entryPointAccess"
)

// GoogleProvider talks to the Google Meet REST API.
type GoogleProvider struct {
	svc *meetapi.Service
}

// NewGoogleProvider authenticates with the service account or authorized
// user stored in credentialsFile.
func NewGoogleProvider(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GoogleProvider, error) {
	if credentialsFile == "" && len(opts) == 0 {
		return nil, ErrNoCredentials
	}
	all := []option.ClientOption{option.WithScopes(scopeSpacesCreated)}
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)

	svc, err := meetapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create meet service: %w", err)
	}
	return &GoogleProvider{svc: svc}, nil
}

func (g *GoogleProvider) CreateSpace(ctx context.Context) (model.MeetingSpace, error) {
	s, err := g.svc.Spaces.Create(&meetapi.Space{}).Context(ctx).Do()
	if err != nil {
		return model.MeetingSpace{}, err
	}
	return model.MeetingSpace{Name: s.Name, MeetingURI: s.MeetingUri, MeetingCode: s.MeetingCode}, nil
}

func (g *GoogleProvider) MakePublic(ctx context.Context, space model.MeetingSpace) error {
	_, err := g.svc.Spaces.Patch(space.Name, &meetapi.Space{
		Config: &meetapi.SpaceConfig{AccessType: accessOpen, EntryPointAccess: entryAll},
	}).UpdateMask(publicUpdateMask).Context(ctx).Do()
	return err
}

func (g *GoogleProvider) EndActiveCall(ctx context.Context, space model.MeetingSpace) error {
	_, err := g.svc.Spaces.EndActiveConference(space.Name, &meetapi.EndActiveConferenceRequest{}).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusBadRequest) {
		return fmt.Errorf("%w: %s", ErrNoActiveCall, space.Name)
	}
	return err
}

func (g *GoogleProvider) Name() string { return "google" }
