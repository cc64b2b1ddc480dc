// Package common provides the HTTP response helpers shared by API handlers.
package common

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON envelope carried by error statuses that have a
// structured body
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSONResponse writes data as a JSON body with the given status
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already on the wire, logging is all that is left
		slog.Error("Failed to encode response body", "error", err)
	}
}

// WriteErrorResponse writes the message inside the standard error envelope
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorBody{Error: message}, statusCode)
}

// WriteTextResponse writes a plain text body with the given status
func WriteTextResponse(w http.ResponseWriter, body string, statusCode int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Failed to write response body", "error", err)
	}
}
