package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/localrank/internal/adapters/eventbus"
)

const defaultActivityLimit = 50

// ActivitySource returns recently consumed score events, newest first.
type ActivitySource interface {
	Recent(limit int) []eventbus.ScoreEvent
}

// ActivityHandler handles score activity requests.
type ActivityHandler struct {
	source ActivitySource
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(source ActivitySource) *ActivityHandler {
	return &ActivityHandler{source: source}
}

// HandleList handles GET /activity requests.
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		limit = n
	}
	events := h.source.Recent(limit)
	if events == nil {
		events = []eventbus.ScoreEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
