package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-bgg-gateway/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SearchEnvelope wraps BGG search results.
type SearchEnvelope struct {
	Results []domain.SearchResult `json:"results"`
}

type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// OOBCodeEnvelope carries the long verification code the client applies to complete verification.
type OOBCodeEnvelope struct {
	OOBCode string `json:"oobCode"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// clientErrors maps domain sentinels to HTTP status codes, in match order.
var clientErrors = []struct {
	err    error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrExpired, http.StatusGone},
}

// classify returns the status for err and, for client errors, the sentinel message safe to show.
func classify(err error) (int, string) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return ce.status, ce.err.Error()
		}
	}
	return http.StatusInternalServerError, ""
}

// knownFailure reports whether err carries a message safe to show clients on a 500.
func knownFailure(err error) bool {
	return errors.Is(err, domain.ErrUpstreamTimeout) ||
		errors.Is(err, domain.ErrServiceUnavailable) ||
		errors.Is(err, domain.ErrCodeGeneration)
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
