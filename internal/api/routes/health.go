package routes

import (
	"net/http"

	"Agora/internal/api/handlers/identity"

	"github.com/go-chi/chi/v5"
)

// RegisterHealthRoutes registers liveness and source health endpoints
func RegisterHealthRoutes(r chi.Router, reporter identity.HealthReporter) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Always 200 while the process serves: degraded sources are fail-open
	r.Get("/health/sources", identity.HandleSourceHealth(reporter))
}
