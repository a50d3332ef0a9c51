package meet

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/datemaker/internal/domain/model"
)

// StaticProvider fabricates spaces locally. It backs debug runs and the simulator.
type StaticProvider struct {
	baseURL string

	mu      sync.Mutex
	created []model.MeetingSpace
	public  map[string]bool
	ended   map[string]int
}

// NewStaticProvider builds meeting URIs under baseURL.
func NewStaticProvider(baseURL string) *StaticProvider {
	return &StaticProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		public:  make(map[string]bool),
		ended:   make(map[string]int),
	}
}

func (s *StaticProvider) CreateSpace(ctx context.Context) (model.MeetingSpace, error) {
	if err := ctx.Err(); err != nil {
		return model.MeetingSpace{}, err
	}
	code := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	space := model.MeetingSpace{
		Name:        "spaces/" + code,
		MeetingURI:  s.baseURL + "/" + code,
		MeetingCode: code,
	}
	s.mu.Lock()
	s.created = append(s.created, space)
	s.mu.Unlock()
	return space, nil
}

func (s *StaticProvider) MakePublic(ctx context.Context, space model.MeetingSpace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.public[space.Name] = true
	return nil
}

func (s *StaticProvider) EndActiveCall(ctx context.Context, space model.MeetingSpace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended[space.Name]++
	return nil
}

func (s *StaticProvider) Name() string { return "static" }

// Created returns every space created so far.
func (s *StaticProvider) Created() []model.MeetingSpace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MeetingSpace(nil), s.created...)
}

// IsPublic reports whether MakePublic was called for the space.
func (s *StaticProvider) IsPublic(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.public[name]
}

// EndedCalls returns how many times calls in the space were ended.
func (s *StaticProvider) EndedCalls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended[name]
}
