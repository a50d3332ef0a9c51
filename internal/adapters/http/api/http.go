// Package api serves the ops HTTP surface: metrics, service stats, live
// workers and a read-only view of events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	WorkersProvider
	EventReader
}

// EventReader exposes the event reads the API needs.
type EventReader interface {
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	ListPairs(ctx context.Context, eventID int64) ([]model.Pair, error)
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	workersHandler *WorkersHandler
	eventsHandler  *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		workersHandler: NewWorkersHandler(deps),
		eventsHandler:  NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/workers", MetricsMiddleware(s.workersHandler.HandleWorkers, "workers"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "events"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
