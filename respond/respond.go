// Package respond writes the JSON bodies shared by every API handler.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the envelope of every failed request.
type ErrorBody struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
}

type Success struct {
	Success bool `json:"success"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, Success{Success: true})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Status: "error", StatusCode: status, Message: message})
}

func FieldError(w http.ResponseWriter, status int, field, message string) {
	JSON(w, status, ErrorBody{Status: "error", StatusCode: status, Message: message, Field: field})
}
