package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/localrank/internal/domain/model"
)

// scoreRequest is the body of POST /scores.
type scoreRequest struct {
	ID            string   `json:"id"`
	UserID        int64    `json:"user_id"`
	BeatmapID     int64    `json:"beatmap_id"`
	RulesetID     int      `json:"ruleset_id"`
	TotalScore    int64    `json:"total_score"`
	Accuracy      float64  `json:"accuracy"`
	Mods          []string `json:"mods"`
	Rank          string   `json:"rank"`
	Date          string   `json:"date"`
	Failed        bool     `json:"failed"`
	DeletePending bool     `json:"delete_pending"`
}

func (s scoreRequest) toModel() (model.ScoreInfo, error) {
	out := model.ScoreInfo{
		UserID:        s.UserID,
		BeatmapID:     s.BeatmapID,
		RulesetID:     s.RulesetID,
		TotalScore:    s.TotalScore,
		Accuracy:      s.Accuracy,
		Mods:          s.Mods,
		Failed:        s.Failed,
		DeletePending: s.DeletePending,
	}
	if strings.TrimSpace(s.ID) != "" {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: invalid id", ErrBadRequest)
		}
		out.ID = id
	}
	if strings.TrimSpace(s.Rank) != "" {
		r, err := model.ParseRank(s.Rank)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		out.Rank = r
	}
	if strings.TrimSpace(s.Date) != "" {
		ts, err := time.Parse(time.RFC3339, s.Date)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: invalid date; must be RFC3339", ErrBadRequest)
		}
		out.Date = ts
	}
	return out, nil
}

// scoreResponse is the stored score as returned by the API.
type scoreResponse struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	BeatmapID     int64     `json:"beatmap_id"`
	RulesetID     int       `json:"ruleset_id"`
	TotalScore    int64     `json:"total_score"`
	Accuracy      float64   `json:"accuracy"`
	Mods          []string  `json:"mods,omitempty"`
	Rank          string    `json:"rank"`
	Date          time.Time `json:"date"`
	Failed        bool      `json:"failed"`
	DeletePending bool      `json:"delete_pending"`
}

func newScoreResponse(s model.ScoreInfo) scoreResponse {
	return scoreResponse{
		ID:            s.ID.String(),
		UserID:        s.UserID,
		BeatmapID:     s.BeatmapID,
		RulesetID:     s.RulesetID,
		TotalScore:    s.TotalScore,
		Accuracy:      s.Accuracy,
		Mods:          s.Mods,
		Rank:          s.Rank.String(),
		Date:          s.Date,
		Failed:        s.Failed,
		DeletePending: s.DeletePending,
	}
}

// ScoresHandler handles score store requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleAdd handles POST /scores requests.
func (h *ScoresHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	score, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	stored, err := h.deps.AddScore(r.Context(), score)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newScoreResponse(stored))
}

// HandleDelete handles DELETE /scores/{id} requests. The score is only
// marked for deletion.
func (h *ScoresHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := scoreID(w, r)
	if !ok {
		return
	}
	if err := h.deps.DeleteScore(r.Context(), id); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore handles POST /scores/{id}/restore requests.
func (h *ScoresHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := scoreID(w, r)
	if !ok {
		return
	}
	if err := h.deps.RestoreScore(r.Context(), id); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePurge handles POST /scores/purge requests.
func (h *ScoresHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.PurgeDeleted(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"purged": n})
}

func scoreID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid score id", ErrBadRequest))
		return uuid.Nil, false
	}
	return id, true
}
