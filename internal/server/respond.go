package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	respondJSON(w, status, errorResponse{
		Success: false,
		Error:   errMsg,
		Message: message,
	})
}
