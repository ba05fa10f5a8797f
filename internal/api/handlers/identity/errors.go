package identity

import (
	"errors"
	"log"
	"net/http"

	"Agora/internal/api/handlers"
	"Agora/internal/core/identity"
	"Agora/internal/substrate/address"
)

// ErrorResponse represents an XRPC error response
type ErrorResponse = handlers.ErrorResponse

func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	handlers.WriteError(w, statusCode, errorType, message)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	handlers.WriteJSON(w, body)
}

// handleServiceError maps resolver errors to HTTP responses.
// Source failures never reach here: the resolver degrades instead of failing.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case identity.IsInvalidAddress(err):
		var invalid *address.InvalidError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "InvalidAddress", invalid.Error())
		} else {
			writeError(w, http.StatusBadRequest, "InvalidAddress", err.Error())
		}

	case identity.IsUnknownNetwork(err):
		writeError(w, http.StatusBadRequest, "UnknownNetwork", err.Error())

	default:
		log.Printf("ERROR: Identity service error: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
	}
}
