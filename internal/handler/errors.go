// Package handler provides the HTTP surface of the gateway: the reverse
// proxy for signed traffic and the JSON admin API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alanjrogers/aws-s3/internal/service"
)

// errorResponse is the JSON error body returned by the admin API.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to an HTTP status and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrAccessKeyNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict

	case errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusForbidden

	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidExpiration),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingRequiredParams),
		errors.Is(err, service.ErrMaxAccessKeysReached),
		errors.Is(err, service.ErrAccessKeyInactive),
		errors.Is(err, service.ErrAccessKeyExpired):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// writeUpstreamError writes an S3-style XML error for proxy failures so
// signed clients see the same error shape as authentication failures.
func writeUpstreamError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusBadGateway)

	body := `<?xml version="1.0" encoding="UTF-8"?>
<Error>
    <Code>ServiceUnavailable</Code>
    <Message>The upstream service is unavailable. Please try again.</Message>
</Error>`
	_, _ = w.Write([]byte(body))
}
