package api

import (
	"encoding/json"
	"net/http"
)

// Success sends a successful HTTP response with optional JSON data.
func Success(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error sends an error response with the standardized JSON body.
func Error(w http.ResponseWriter, statusCode int, message string) {
	ErrorWithDetails(w, statusCode, message, nil)
}

// ErrorWithDetails sends an error response carrying per-item details.
func ErrorWithDetails(w http.ResponseWriter, statusCode int, message string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details})
}
