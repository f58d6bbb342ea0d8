package utils

import (
	"encoding/json"
	"net/http"

	"github.com/brizzai/clgmart/internal/logger"
	"go.uber.org/zap"
)

// Alert is a user-visible title and message, shared by screens and error bodies
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorBody is written for requests that fail before a screen can be shown.
// Error is a stable machine code; Alert is what a client shows.
type ErrorBody struct {
	Error string `json:"error"`
	Alert Alert  `json:"alert"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes an ErrorBody with status
func WriteError(w http.ResponseWriter, status int, code string, alert Alert) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorBody{Error: code, Alert: alert}); err != nil {
		logger.Error("Failed to encode error response", zap.String("code", code), zap.Error(err))
	}
}
