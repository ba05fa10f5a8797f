package routes

import (
	"Agora/internal/api/handlers/thread"

	"github.com/go-chi/chi/v5"
)

// RegisterThreadRoutes registers thread XRPC endpoints
func RegisterThreadRoutes(r chi.Router, allowedOrigins []string) {
	r.Group(func(r chi.Router) {
		r.Use(corsMiddleware(allowedOrigins))
		r.Options("/xrpc/agora.thread.build", preflight)

		// POST /xrpc/agora.thread.build
		r.Post("/xrpc/agora.thread.build", thread.HandleBuild)
	})
}
