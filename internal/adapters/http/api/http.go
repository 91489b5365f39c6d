// Package api declares the local inspection API and its route registration.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// ScoreDependencies are the score store operations exposed over HTTP.
type ScoreDependencies interface {
	AddScore(ctx context.Context, s model.ScoreInfo) (model.ScoreInfo, error)
	DeleteScore(ctx context.Context, id uuid.UUID) error
	RestoreScore(ctx context.Context, id uuid.UUID) error
	PurgeDeleted(ctx context.Context) (int, error)
}

// PanelDependencies open, close and inspect beatmap panels.
type PanelDependencies interface {
	Attach(ctx context.Context, beatmap model.BeatmapInfo) (Panel, error)
	Detach(ctx context.Context, beatmapID int64) error
	Panel(ctx context.Context, beatmapID int64) (Panel, error)
	Panels(ctx context.Context) ([]Panel, error)
}

// SessionDependencies change the ruleset and the local user.
type SessionDependencies interface {
	SetRuleset(ctx context.Context, id int) (model.RulesetInfo, error)
	Login(ctx context.Context, u model.User) error
	Logout(ctx context.Context) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	PanelDependencies
	SessionDependencies
	StatsProvider
}

// Panel mirrors the read shape of a beatmap panel.
type Panel = types.Panel

// Server wires HTTP routes for the inspection API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scoresHandler  *ScoresHandler
	panelsHandler  *PanelsHandler
	sessionHandler *SessionHandler

	activityHandler *ActivityHandler
}

// ServerOption configures optional routes.
type ServerOption func(*Server)

// WithActivity serves GET /activity from source.
func WithActivity(source ActivitySource) ServerOption {
	return func(s *Server) {
		if source != nil {
			s.activityHandler = NewActivityHandler(source)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		scoresHandler:  NewScoresHandler(deps),
		panelsHandler:  NewPanelsHandler(deps),
		sessionHandler: NewSessionHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandleAdd, "scores"))
	mux.HandleFunc("POST /scores/purge", MetricsMiddleware(s.scoresHandler.HandlePurge, "scores_purge"))
	mux.HandleFunc("DELETE /scores/{id}", MetricsMiddleware(s.scoresHandler.HandleDelete, "score"))
	mux.HandleFunc("POST /scores/{id}/restore", MetricsMiddleware(s.scoresHandler.HandleRestore, "score_restore"))

	mux.HandleFunc("PUT /ruleset", MetricsMiddleware(s.sessionHandler.HandleSetRuleset, "ruleset"))
	mux.HandleFunc("PUT /session", MetricsMiddleware(s.sessionHandler.HandleLogin, "session"))
	mux.HandleFunc("DELETE /session", MetricsMiddleware(s.sessionHandler.HandleLogout, "session"))

	mux.HandleFunc("POST /panels", MetricsMiddleware(s.panelsHandler.HandleAttach, "panels"))
	mux.HandleFunc("GET /panels", MetricsMiddleware(s.panelsHandler.HandleList, "panels"))
	mux.HandleFunc("GET /panels/{beatmap_id}", MetricsMiddleware(s.panelsHandler.HandleGet, "panel"))
	mux.HandleFunc("DELETE /panels/{beatmap_id}", MetricsMiddleware(s.panelsHandler.HandleDetach, "panel"))

	if s.activityHandler != nil {
		mux.HandleFunc("GET /activity", MetricsMiddleware(s.activityHandler.HandleList, "activity"))
	}
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

// writeUpstreamError translates an error from the dependencies.
func writeUpstreamError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decodeBody reads one JSON object from r into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadBody, err)
	}
	return nil
}
