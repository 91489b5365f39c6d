package api

import (
	"net/http"

	"github.com/okian/localrank/internal/domain/model"
)

type rulesetRequest struct {
	ID int `json:"id"`
}

type loginRequest struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// SessionHandler handles ruleset and login requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleSetRuleset handles PUT /ruleset requests.
func (h *SessionHandler) HandleSetRuleset(w http.ResponseWriter, r *http.Request) {
	var req rulesetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rs, err := h.deps.SetRuleset(r.Context(), req.ID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": rs.ID, "short_name": rs.ShortName})
}

// HandleLogin handles PUT /session requests.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.Login(r.Context(), model.User{ID: req.UserID, Username: req.Username}); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogout handles DELETE /session requests.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Logout(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
