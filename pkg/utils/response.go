// Package utils provides common utility functions for HTTP response handling
// and request ID management. Every JSON body written here carries the "ok"
// flag the web client switches on.
package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// requestIDKey is the context key for request ID
const requestIDKey contextKey = "request_id"

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if the context is nil or no request ID is present.
//
// Example:
//
//	requestID := utils.GetRequestID(r.Context())
//	if requestID != "" {
//	    log.Info().Str("request_id", requestID).Msg("Processing request")
//	}
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID adds a request ID to the context for distributed tracing.
// This is typically called by middleware to inject a unique identifier for each request.
//
// Example:
//
//	ctx := utils.WithRequestID(r.Context(), uuid.New().String())
//	r = r.WithContext(ctx)
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ErrorResponse is the body of every failed request.
//
// JSON example:
//
//	{"ok": false, "error": "message is required"}
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// DataResponse wraps a successful payload.
//
// JSON example:
//
//	{"ok": true, "data": {"crop": "maize", "origin": "Eldoret", "destination": "Nairobi"}}
type DataResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// RespondWithError sends {"ok": false, "error": message} with statusCode.
// The request ID from the context is attached to the log line, not the body.
//
// Example:
//
//	if route == nil {
//	    utils.RespondWithError(w, r, http.StatusNotFound, "Route not found")
//	    return
//	}
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	RespondWithJSON(w, r, statusCode, ErrorResponse{OK: false, Error: message})
}

// RespondWithData sends {"ok": true, "data": data} with HTTP 200.
func RespondWithData(w http.ResponseWriter, r *http.Request, data any) {
	RespondWithJSON(w, r, http.StatusOK, DataResponse{OK: true, Data: data})
}

// RespondWithJSON sends a JSON response with the given status code and data.
// The request ID is automatically extracted from the request context.
//
// Example:
//
//	utils.RespondWithJSON(w, r, http.StatusOK, resp)
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	requestID := GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode JSON response")
	}
}
