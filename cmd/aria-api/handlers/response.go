// Package handlers provides HTTP handlers for the ARIA API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/proingenius/aria-banking/internal/domain"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError answers with the status mapped from err's kind and the
// error's message as body.
func writeDomainError(w http.ResponseWriter, err *domain.Error) {
	writeError(w, domain.HTTPStatus(err), err.Message)
}

// writeDomainBody answers with the status mapped from err's kind and a
// route-specific body.
func writeDomainBody(w http.ResponseWriter, err *domain.Error, body interface{}) {
	writeJSON(w, domain.HTTPStatus(err), body)
}

var (
	errAINotConfigured  = domain.ConfigError("AI service not configured", nil)
	errClientIDRequired = domain.ValidationError("Client id is required")
	errClientNotFound   = domain.NotFoundError("Client not found")
	errMessageRequired  = domain.ValidationError("Message is required")
	errMessageTooLong   = domain.ValidationError("Message too long")
	errQueryRequired    = domain.ValidationError(`Query parameter "q" is required`)
)
