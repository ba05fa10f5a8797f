package identity

import (
	"net/http"

	"Agora/internal/core/identity"
)

// HealthReporter exposes the circuit state of each identity source
type HealthReporter interface {
	Health() map[identity.Source]identity.SourceHealth
}

// sourceHealthResponse lists breaker state per source.
// Degraded is true while any circuit is open.
type sourceHealthResponse struct {
	Sources  map[identity.Source]identity.SourceHealth `json:"sources"`
	Degraded bool                                      `json:"degraded"`
}

// HandleSourceHealth reports source breaker state
// GET /health/sources
func HandleSourceHealth(reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := reporter.Health()
		resp := sourceHealthResponse{Sources: stats}
		for _, s := range stats {
			if s.State == "open" {
				resp.Degraded = true
			}
		}
		writeJSON(w, resp)
	}
}
