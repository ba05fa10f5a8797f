package routes

import (
	"log/slog"

	"Agora/internal/api/handlers/identity"
	coreIdentity "Agora/internal/core/identity"

	"github.com/go-chi/chi/v5"
)

// RegisterIdentityRoutes registers identity-related XRPC endpoints
func RegisterIdentityRoutes(
	r chi.Router,
	resolver coreIdentity.Resolver,
	allowedOrigins []string,
	logger *slog.Logger,
) {
	resolveHandler := identity.NewResolveHandler(resolver)
	watchHandler := identity.NewWatchHandler(resolver, originChecker(allowedOrigins), logger)

	r.Group(func(r chi.Router) {
		r.Use(corsMiddleware(allowedOrigins))
		// Preflight requests are answered by the CORS middleware
		r.Options("/xrpc/agora.identity.resolve", preflight)
		r.Options("/xrpc/agora.identity.getDelegates", preflight)

		// GET /xrpc/agora.identity.resolve
		r.Get("/xrpc/agora.identity.resolve", resolveHandler.HandleResolve)

		// POST /xrpc/agora.identity.getDelegates
		r.Post("/xrpc/agora.identity.getDelegates", resolveHandler.HandleGetDelegates)
	})

	// GET /xrpc/agora.identity.watch (websocket, origin checked on upgrade)
	r.Get("/xrpc/agora.identity.watch", watchHandler.HandleWatch)
}
