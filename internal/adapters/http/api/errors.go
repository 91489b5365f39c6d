package api

import (
	"errors"
	"net/http"

	"github.com/okian/localrank/internal/adapters/repository"
	service "github.com/okian/localrank/internal/app"
	"github.com/okian/localrank/internal/domain/identity"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadBody    = errors.New("malformed request body")
)

// statusFor maps upstream errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrPanelNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateScore):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidBeatmap),
		errors.Is(err, service.ErrUnknownRuleset),
		errors.Is(err, identity.ErrInvalidUser),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBadBody):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
