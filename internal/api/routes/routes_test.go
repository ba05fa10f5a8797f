package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Agora/internal/core/identity"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, addr, network string, opts identity.ResolveOptions) (*identity.ResolvedIdentity, error) {
	return &identity.ResolvedIdentity{Address: addr, Network: network, PrimaryDisplay: addr}, nil
}

func (stubResolver) Delegates(ctx context.Context, addrs []string, network string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

type stubHealth struct{}

func (stubHealth) Health() map[identity.Source]identity.SourceHealth {
	return map[identity.Source]identity.SourceHealth{}
}

func newTestRouter(origins []string) http.Handler {
	r := chi.NewRouter()
	RegisterIdentityRoutes(r, stubResolver{}, origins, nil)
	RegisterThreadRoutes(r, origins)
	RegisterHealthRoutes(r, stubHealth{})
	return r
}

func TestRoutes_Mounted(t *testing.T) {
	router := newTestRouter(nil)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/health", ""},
		{http.MethodGet, "/health/sources", ""},
		{http.MethodGet, "/xrpc/agora.identity.resolve?address=abc", ""},
		{http.MethodPost, "/xrpc/agora.identity.getDelegates", `{"addresses":["abc"]}`},
		{http.MethodPost, "/xrpc/agora.thread.build", `{"messages":[{"id":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_CORS(t *testing.T) {
	router := newTestRouter([]string{"https://agora.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/xrpc/agora.identity.resolve", nil)
	req.Header.Set("Origin", "https://agora.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://agora.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/xrpc/agora.identity.resolve?address=abc", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))
	assert.Nil(t, originChecker([]string{"*"}))

	check := originChecker([]string{"https://agora.example.com"})
	require.NotNil(t, check)

	req := httptest.NewRequest(http.MethodGet, "/xrpc/agora.identity.watch", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://agora.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
