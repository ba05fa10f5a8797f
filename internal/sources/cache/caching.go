package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"Agora/internal/core/identity"
	"Agora/internal/substrate/address"
)

// Options configures the caching decorators
type Options struct {
	// TTL applies to cached records
	TTL time.Duration
	// NegativeTTL applies to cached NotFound results; zero disables negative caching
	NegativeTTL time.Duration
}

// Layer wraps source clients with read-through caching on a shared store.
// Records and NotFound results are cached; transport errors never are.
// Concurrent misses for the same key share one upstream call.
type Layer struct {
	store Store
	opts  Options
	group singleflight.Group
}

// NewLayer creates a caching layer over store
func NewLayer(store Store, opts Options) *Layer {
	if store == nil {
		store = NoopStore{}
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	return &Layer{store: store, opts: opts}
}

// Purge removes every cached source entry for an account, in any encoding
func (l *Layer) Purge(ctx context.Context, addr string) error {
	return l.store.Purge(ctx, subjectOf(addr))
}

// subjectOf tags entries with the canonical account so a purge by any
// encoding of the address finds them
func subjectOf(addr string) string {
	if c, err := address.CanonicalAny(addr); err == nil {
		return c.String()
	}
	return strings.TrimSpace(addr)
}

func cacheKey(source identity.Source, parts ...string) string {
	return string(source) + ":" + strings.Join(parts, ":")
}

// lookup is the read-through path shared by the single-record decorators
func lookup[T any](ctx context.Context, l *Layer, source identity.Source, key, addr string, fetch func(context.Context) (*T, error)) (*T, error) {
	entry, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		if entry.NotFound {
			return nil, &identity.NotFoundError{Source: source, Address: addr}
		}
		var value T
		if err := json.Unmarshal(entry.Value, &value); err == nil {
			return &value, nil
		}
		log.Printf("[source-cache] Warning: discarding corrupt entry %s", key)
	case !errors.Is(err, ErrCacheMiss):
		log.Printf("[source-cache] Warning: cache read failed for %s: %v", key, err)
	}

	// The call is shared with every caller that joins it, so no single
	// caller's cancellation may end it. The source client's timeout bounds it.
	shared := context.WithoutCancel(ctx)
	result, err, _ := l.group.Do(key, func() (interface{}, error) {
		value, err := fetch(shared)
		if value != nil || err != nil {
			l.remember(shared, key, addr, value, err)
		}
		return value, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*T), nil
}

func (l *Layer) remember(ctx context.Context, key, addr string, value any, err error) {
	var (
		entry *Entry
		ttl   time.Duration
	)
	switch {
	case err == nil:
		data, mErr := json.Marshal(value)
		if mErr != nil {
			return
		}
		entry, ttl = &Entry{Value: data}, l.opts.TTL
	case identity.IsNotFound(err) && l.opts.NegativeTTL > 0:
		entry, ttl = &Entry{NotFound: true}, l.opts.NegativeTTL
	default:
		return
	}

	if setErr := l.store.Set(ctx, key, subjectOf(addr), entry, ttl); setErr != nil {
		log.Printf("[source-cache] Warning: failed to cache %s: %v", key, setErr)
	}
}

// ChainRegistry caches an identity.ChainRegistryClient
type ChainRegistry struct {
	base  identity.ChainRegistryClient
	layer *Layer
}

// WrapChainRegistry returns a caching chain registry client
func (l *Layer) WrapChainRegistry(base identity.ChainRegistryClient) *ChainRegistry {
	return &ChainRegistry{base: base, layer: l}
}

func (c *ChainRegistry) FetchIdentity(ctx context.Context, addr, network string) (*identity.IdentityRecord, error) {
	key := cacheKey(identity.SourceChainRegistry, network, addr)
	return lookup(ctx, c.layer, identity.SourceChainRegistry, key, addr,
		func(ctx context.Context) (*identity.IdentityRecord, error) {
			return c.base.FetchIdentity(ctx, addr, network)
		})
}

// FederatedNames caches an identity.FederatedNameClient
type FederatedNames struct {
	base  identity.FederatedNameClient
	layer *Layer
}

// WrapFederatedNames returns a caching federated name client
func (l *Layer) WrapFederatedNames(base identity.FederatedNameClient) *FederatedNames {
	return &FederatedNames{base: base, layer: l}
}

func (c *FederatedNames) FetchName(ctx context.Context, addr, network string) (*identity.FederatedName, error) {
	key := cacheKey(identity.SourceFederatedName, network, addr)
	return lookup(ctx, c.layer, identity.SourceFederatedName, key, addr,
		func(ctx context.Context) (*identity.FederatedName, error) {
			return c.base.FetchName(ctx, addr, network)
		})
}

// Profiles caches an identity.OffchainProfileClient
type Profiles struct {
	base  identity.OffchainProfileClient
	layer *Layer
}

// WrapProfiles returns a caching profile client
func (l *Layer) WrapProfiles(base identity.OffchainProfileClient) *Profiles {
	return &Profiles{base: base, layer: l}
}

func (c *Profiles) FetchByAddress(ctx context.Context, addr string) (*identity.OffchainProfile, error) {
	key := cacheKey(identity.SourceProfile, addr)
	return lookup(ctx, c.layer, identity.SourceProfile, key, addr,
		func(ctx context.Context) (*identity.OffchainProfile, error) {
			return c.base.FetchByAddress(ctx, addr)
		})
}

// Delegates caches an identity.DelegateRegistryClient per address.
// Only the addresses missing from the cache are sent upstream.
type Delegates struct {
	base  identity.DelegateRegistryClient
	layer *Layer
}

// WrapDelegates returns a caching delegate registry client
func (l *Layer) WrapDelegates(base identity.DelegateRegistryClient) *Delegates {
	return &Delegates{base: base, layer: l}
}

func (c *Delegates) FetchBatch(ctx context.Context, addrs []string) (map[string]bool, error) {
	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = cacheKey(identity.SourceDelegates, a)
	}

	cached, err := c.layer.store.GetMany(ctx, keys)
	if err != nil {
		log.Printf("[source-cache] Warning: delegate cache read failed: %v", err)
		cached = map[string]*Entry{}
	}

	out := make(map[string]bool, len(addrs))
	missing := make([]string, 0, len(addrs))
	for i, a := range addrs {
		entry, ok := cached[keys[i]]
		if !ok {
			missing = append(missing, a)
			continue
		}
		var flag bool
		if entry.NotFound || json.Unmarshal(entry.Value, &flag) != nil {
			missing = append(missing, a)
			continue
		}
		out[a] = flag
	}

	if len(missing) == 0 {
		return out, nil
	}

	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	shared := context.WithoutCancel(ctx)
	result, err, _ := c.layer.group.Do(cacheKey(identity.SourceDelegates, strings.Join(sorted, ",")), func() (interface{}, error) {
		raw, err := c.base.FetchBatch(shared, sorted)
		if err != nil {
			return nil, err
		}
		answers := identity.MatchDelegates(sorted, raw)
		for _, a := range sorted {
			c.layer.remember(shared, cacheKey(identity.SourceDelegates, a), a, answers[a], nil)
		}
		return answers, nil
	})
	if err != nil {
		return nil, err
	}

	answers := result.(map[string]bool)
	for _, a := range missing {
		out[a] = answers[a]
	}
	return out, nil
}
