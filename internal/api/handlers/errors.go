// Package handlers holds response helpers shared by the XRPC handler packages.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse represents an XRPC error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// WriteJSON pre-encodes body so an encoding failure can still become a 500
func WriteJSON(w http.ResponseWriter, body interface{}) {
	responseBytes, err := json.Marshal(body)
	if err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		WriteError(w, http.StatusInternalServerError, "InternalServerError", "Failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(responseBytes); err != nil {
		log.Printf("ERROR: Failed to write response: %v", err)
	}
}
