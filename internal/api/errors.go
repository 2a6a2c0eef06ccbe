package api

import (
	"encoding/json"
	"net/http"
)

const (
	ErrTypeValidation  = "validation"
	ErrTypeNotFound    = "not_found"
	ErrTypeRejected    = "rejected"
	ErrTypeRateLimited = "rate_limited"
	ErrTypeInternal    = "internal"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, errType, message string, ctx map[string]any) {
	writeJSON(w, status, APIError{Type: errType, Message: message, Context: ctx})
}
