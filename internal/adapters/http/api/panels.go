package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/localrank/internal/domain/model"
)

// panelRequest is the body of POST /panels.
type panelRequest struct {
	BeatmapID int64  `json:"beatmap_id"`
	OnlineID  int64  `json:"online_id"`
	Title     string `json:"title"`
	Version   string `json:"version"`
}

// PanelsHandler handles beatmap panel requests.
type PanelsHandler struct {
	deps PanelDependencies
}

// NewPanelsHandler creates a new panels handler.
func NewPanelsHandler(deps PanelDependencies) *PanelsHandler {
	return &PanelsHandler{deps: deps}
}

// HandleAttach handles POST /panels requests.
func (h *PanelsHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	var req panelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p, err := h.deps.Attach(r.Context(), model.BeatmapInfo{
		ID:       req.BeatmapID,
		OnlineID: req.OnlineID,
		Title:    req.Title,
		Version:  req.Version,
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /panels requests.
func (h *PanelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ps, err := h.deps.Panels(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// HandleGet handles GET /panels/{beatmap_id} requests.
func (h *PanelsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := beatmapID(w, r)
	if !ok {
		return
	}
	p, err := h.deps.Panel(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDetach handles DELETE /panels/{beatmap_id} requests.
func (h *PanelsHandler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	id, ok := beatmapID(w, r)
	if !ok {
		return
	}
	if err := h.deps.Detach(r.Context(), id); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func beatmapID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("beatmap_id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid beatmap id", ErrBadRequest))
		return 0, false
	}
	return id, true
}
