// Package middleware provides HTTP middleware and response helpers for the
// API server.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kodit-ai/kodit/infrastructure/api/jsonapi"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/provider"
	"github.com/kodit-ai/kodit/internal/database"
)

// ErrBadRequest marks a client error in request parsing or validation.
var ErrBadRequest = errors.New("bad request")

// WriteJSON writes a JSON:API document with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps an error to its JSON:API error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := statusFor(err)
	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	WriteJSON(w, status, jsonapi.NewErrorResponse(
		jsonapi.NewError(http.StatusText(status), http.StatusText(status), err.Error()),
	))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, git.ErrAuthFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, git.ErrUnreachableRepo):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
