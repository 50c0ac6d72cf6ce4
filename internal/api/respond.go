package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
	"github.com/robinyoon-dev/repo-spect/internal/narrative"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

// errorBody is the error response shape shared by all routes
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// writeJSON writes v as application/json with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and error body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: titleFor(err), Message: err.Error()}

	var upErr *gh.UpstreamError
	if errors.As(err, &upErr) {
		body.Message = upErr.Message
		body.Details = upErr.Details
	}

	log := logger.C(r.Context())
	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	writeJSON(w, status, body)
}

// statusFor mirrors the upstream status when there is one
func statusFor(err error) int {
	var upErr *gh.UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, repository.ErrInvalidURL),
		errors.Is(err, repository.ErrUnsupportedHost),
		errors.Is(err, repository.ErrMalformedRepoPath),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &upErr) && upErr.Status >= 400:
		return upErr.Status
	case errors.Is(err, narrative.ErrGenerationBackend):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func titleFor(err error) string {
	var upErr *gh.UpstreamError
	switch {
	case errors.Is(err, repository.ErrInvalidURL),
		errors.Is(err, repository.ErrUnsupportedHost),
		errors.Is(err, repository.ErrMalformedRepoPath):
		return "Invalid URL format"
	case errors.Is(err, errBadRequest):
		return "Invalid request"
	case errors.As(err, &upErr):
		return "GitHub API error"
	case errors.Is(err, narrative.ErrGenerationBackend):
		return "Generation failed"
	default:
		return "Internal error"
	}
}
