package identity

import (
	"context"

	"Agora/internal/substrate/address"
)

// ChainRegistryClient fetches on-chain registered identities.
// Returns a NotFoundError when the account has no identity.
type ChainRegistryClient interface {
	FetchIdentity(ctx context.Context, addr, network string) (*IdentityRecord, error)
}

// FederatedNameClient resolves names from a decentralized naming service.
// Only called for networks that support federated naming.
type FederatedNameClient interface {
	FetchName(ctx context.Context, addr, network string) (*FederatedName, error)
}

// OffchainProfileClient fetches user profiles keyed by address
type OffchainProfileClient interface {
	FetchByAddress(ctx context.Context, addr string) (*OffchainProfile, error)
}

// DelegateRegistryClient answers delegate membership for many addresses at once.
// Addresses missing from the returned map are not delegates.
type DelegateRegistryClient interface {
	FetchBatch(ctx context.Context, addrs []string) (map[string]bool, error)
}

// AddressCodec canonicalizes and re-encodes addresses
type AddressCodec interface {
	Canonicalize(addr, network string) (address.Canonical, error)
	Encode(canonical address.Canonical, network string) (string, error)
}

// NetworkCatalog answers per-network capability questions
type NetworkCatalog interface {
	SupportsFederatedNaming(network string) bool
}

// Resolver resolves the identity presentation for an address on a network
type Resolver interface {
	// Resolve runs all sources concurrently and applies the precedence chain.
	// Only invalid input (malformed address, unknown network) produces an error;
	// source failures degrade to the next precedence tier.
	Resolve(ctx context.Context, addr, network string, opts ResolveOptions) (*ResolvedIdentity, error)

	// Delegates reports delegate membership for a batch of addresses on a network
	Delegates(ctx context.Context, addrs []string, network string) (map[string]bool, error)
}
