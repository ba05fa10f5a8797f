package registry

import (
	"context"
	"fmt"
	"strings"

	"Agora/internal/core/identity"
	"Agora/internal/core/networks"
	"Agora/internal/sources/transport"
)

// Router dispatches chain registry lookups to the indexer configured for the
// network, falling back to the default indexer.
type Router struct {
	fallback  identity.ChainRegistryClient
	byNetwork map[string]identity.ChainRegistryClient
}

// NewRouter builds one client per network that sets RegistryURL
func NewRouter(fallback identity.ChainRegistryClient, nets []networks.Network, opts transport.Options) (*Router, error) {
	r := &Router{
		fallback:  fallback,
		byNetwork: make(map[string]identity.ChainRegistryClient),
	}
	for _, n := range nets {
		if strings.TrimSpace(n.RegistryURL) == "" {
			continue
		}
		client, err := NewClient(n.RegistryURL, opts)
		if err != nil {
			return nil, fmt.Errorf("registry for network %q: %w", n.Name, err)
		}
		r.byNetwork[strings.ToLower(strings.TrimSpace(n.Name))] = client
	}
	return r, nil
}

// FetchIdentity implements identity.ChainRegistryClient
func (r *Router) FetchIdentity(ctx context.Context, addr, network string) (*identity.IdentityRecord, error) {
	if client, ok := r.byNetwork[strings.ToLower(network)]; ok {
		return client.FetchIdentity(ctx, addr, network)
	}
	return r.fallback.FetchIdentity(ctx, addr, network)
}
