package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
)

// EventsHandler serves the read-only event view.
type EventsHandler struct {
	deps EventReader
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventReader) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type pairResponse struct {
	GroupNo      int   `json:"group_no"`
	TurnNo       int   `json:"turn_no"`
	FirstUserID  int64 `json:"first_user_id"`
	SecondUserID int64 `json:"second_user_id"`
}

type eventResponse struct {
	ID            int64          `json:"id"`
	StartTime     string         `json:"start_time"`
	GroupCapacity int            `json:"group_capacity"`
	State         string         `json:"state"`
	Groups        int            `json:"groups"`
	Pairs         []pairResponse `json:"pairs"`
}

// HandleGetEvent handles GET /events/{id} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/events/")
	id, err := strconv.ParseInt(path, 10, 64)
	if path == "" || strings.Contains(path, "/") || err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	ev, err := h.deps.GetEvent(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	pairs, err := h.deps.ListPairs(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev, pairs))
}

func toEventResponse(ev model.Event, pairs []model.Pair) eventResponse {
	out := eventResponse{
		ID:            ev.ID,
		StartTime:     ev.StartTime.UTC().Format(time.RFC3339),
		GroupCapacity: ev.GroupCapacity,
		State:         string(ev.State),
		Pairs:         make([]pairResponse, 0, len(pairs)),
	}
	groups := make(map[int]struct{})
	for _, p := range pairs {
		groups[p.GroupNo] = struct{}{}
		out.Pairs = append(out.Pairs, pairResponse{
			GroupNo: p.GroupNo, TurnNo: p.TurnNo, FirstUserID: p.FirstUserID, SecondUserID: p.SecondUserID,
		})
	}
	out.Groups = len(groups)
	return out
}
