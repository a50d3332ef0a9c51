package api

import (
	"net/http"

	"github.com/okian/datemaker/internal/domain/types"
)

// WorkersProvider lists live per-event workers.
type WorkersProvider interface {
	ActiveWorkers() []types.WorkerInfo
}

// WorkersHandler handles worker listing requests.
type WorkersHandler struct {
	provider WorkersProvider
}

// NewWorkersHandler creates a new workers handler.
func NewWorkersHandler(p WorkersProvider) *WorkersHandler {
	return &WorkersHandler{provider: p}
}

type workersResponse struct {
	Count   int                `json:"count"`
	Workers []types.WorkerInfo `json:"workers"`
}

// HandleWorkers handles GET /workers requests.
func (h *WorkersHandler) HandleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ws := h.provider.ActiveWorkers()
	if ws == nil {
		ws = []types.WorkerInfo{}
	}
	writeJSON(w, http.StatusOK, workersResponse{Count: len(ws), Workers: ws})
}
