package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"Agora/internal/substrate/address"
)

// Config holds configuration for the resolution engine
type Config struct {
	ManualUsernames     []string
	ShortenChars        int
	DelegateBatchWindow time.Duration
	DelegateBatchSize   int
	BreakerThreshold    int
	BreakerOpenDuration time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		ShortenChars:        address.DefaultShortenChars,
		DelegateBatchWindow: 20 * time.Millisecond,
		DelegateBatchSize:   100,
		BreakerThreshold:    5,
		BreakerOpenDuration: time.Minute,
	}
}

// Sources bundles the four data sources the engine aggregates
type Sources struct {
	Chain     ChainRegistryClient
	Naming    FederatedNameClient
	Profiles  OffchainProfileClient
	Delegates DelegateRegistryClient
}

// Engine implements Resolver.
// It holds no per-request state: staleness across key changes is handled by Tracker.
type Engine struct {
	sources   Sources
	codec     AddressCodec
	networks  NetworkCatalog
	policy    *UsernamePolicy
	breaker   *circuitBreaker
	delegates *batcher[bool]
	logger    *slog.Logger
	config    Config
}

// NewEngine creates a resolution engine
func NewEngine(sources Sources, codec AddressCodec, catalog NetworkCatalog, config Config, logger *slog.Logger) *Engine {
	if sources.Chain == nil || sources.Naming == nil || sources.Profiles == nil || sources.Delegates == nil {
		panic("identity: all four sources are required")
	}
	if codec == nil || catalog == nil {
		panic("identity: codec and network catalog are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.ShortenChars <= 0 {
		config.ShortenChars = address.DefaultShortenChars
	}
	if config.DelegateBatchWindow <= 0 {
		config.DelegateBatchWindow = 20 * time.Millisecond
	}

	e := &Engine{
		sources:  sources,
		codec:    codec,
		networks: catalog,
		policy:   NewUsernamePolicy(config.ManualUsernames),
		breaker:  newCircuitBreaker(config.BreakerThreshold, config.BreakerOpenDuration),
		logger:   logger,
		config:   config,
	}
	e.delegates = newBatcher("delegates", e.fetchDelegateBatch, config.DelegateBatchWindow, config.DelegateBatchSize, logger)
	return e
}

// UsernamePolicy returns the policy used for auto-generated username detection
func (e *Engine) UsernamePolicy() *UsernamePolicy {
	return e.policy
}

// Health returns the circuit state of every source that has been called
func (e *Engine) Health() map[Source]SourceHealth {
	return e.breaker.stats()
}

// Resolve resolves the identity presentation for an address.
// Invalid addresses and unknown networks are rejected before any source is queried.
// Every source runs concurrently and the result is computed once all have settled;
// a failed source counts as missing, so Resolve always produces an identity for
// valid input.
func (e *Engine) Resolve(ctx context.Context, addr, network string, opts ResolveOptions) (*ResolvedIdentity, error) {
	network = normalizeNetwork(network)
	canonical, err := e.codec.Canonicalize(addr, network)
	if err != nil {
		return nil, err
	}
	encoded, err := e.codec.Encode(canonical, network)
	if err != nil {
		return nil, err
	}

	federated := !opts.DisableFederatedLookup && e.networks.SupportsFederatedNaming(network)

	var (
		wg      sync.WaitGroup
		results sourceResults
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results.record = fetchSource(ctx, e, SourceChainRegistry, network, encoded,
			func(ctx context.Context) (*IdentityRecord, error) {
				return e.sources.Chain.FetchIdentity(ctx, encoded, network)
			})
	}()
	go func() {
		defer wg.Done()
		results.profile = fetchSource(ctx, e, SourceProfile, network, encoded,
			func(ctx context.Context) (*OffchainProfile, error) {
				return e.sources.Profiles.FetchByAddress(ctx, encoded)
			})
	}()

	if federated {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results.name = fetchSource(ctx, e, SourceFederatedName, network, encoded,
				func(ctx context.Context) (*FederatedName, error) {
					return e.sources.Naming.FetchName(ctx, encoded, network)
				})
		}()
	}

	if opts.IncludeDelegate {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results.isDelegate = e.delegateFlag(ctx, network, encoded)
		}()
	}

	wg.Wait()

	return aggregate(results, presentation{
		override:         opts.ExplicitUsernameOverride,
		policy:           e.policy,
		canonical:        canonical,
		encoded:          encoded,
		network:          network,
		shortenChars:     e.config.ShortenChars,
		federatedAllowed: federated,
	}), nil
}

// Delegates reports delegate membership for each address, keyed by the input address.
// Invalid addresses are rejected as a whole before the registry is queried.
func (e *Engine) Delegates(ctx context.Context, addrs []string, network string) (map[string]bool, error) {
	network = normalizeNetwork(network)
	encoded := make([]string, len(addrs))
	for i, a := range addrs {
		canonical, err := e.codec.Canonicalize(a, network)
		if err != nil {
			return nil, err
		}
		if encoded[i], err = e.codec.Encode(canonical, network); err != nil {
			return nil, err
		}
	}

	values, err := e.delegates.getMultiple(ctx, encoded)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(addrs))
	for i, a := range addrs {
		out[a] = values[encoded[i]]
	}
	return out, nil
}

func normalizeNetwork(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}

// delegateFlag joins the shared delegate batch. Breaker accounting happens
// once per batch in fetchDelegateBatch, so a failed batch shared by many
// resolutions counts as one failure.
func (e *Engine) delegateFlag(ctx context.Context, network, encoded string) bool {
	if ok, err := e.breaker.canAttempt(SourceDelegates); !ok {
		e.logger.Warn("identity source skipped",
			"source", SourceDelegates, "network", network, "address", encoded, "reason", err)
		return false
	}

	values, err := e.delegates.getMultiple(ctx, []string{encoded})
	if err != nil {
		e.logger.Debug("identity delegate lookup failed",
			"network", network, "address", encoded, "error", err)
		return false
	}
	return values[encoded]
}

// fetchDelegateBatch calls the registry and matches its answers back to the requested keys
func (e *Engine) fetchDelegateBatch(ctx context.Context, keys []string) (map[string]bool, error) {
	answers, err := e.sources.Delegates.FetchBatch(ctx, keys)
	switch {
	case err == nil:
		e.breaker.recordSuccess(SourceDelegates)
	case IsNotFound(err):
		e.breaker.recordSuccess(SourceDelegates)
		return nil, err
	default:
		if !IsTransport(err) {
			err = &TransportError{Source: SourceDelegates, Reason: err.Error(), Err: err}
		}
		e.breaker.recordFailure(SourceDelegates, err)
		e.logger.Warn("identity source transport error",
			"source", SourceDelegates, "keys", len(keys), "error", err)
		return nil, err
	}
	return MatchDelegates(keys, answers), nil
}

// MatchDelegates maps registry answers onto the requested addresses by
// canonical account, so a registry that answers in another encoding still
// matches. Every requested address is present in the result.
func MatchDelegates(requested []string, answers map[string]bool) map[string]bool {
	byCanonical := make(map[address.Canonical]bool, len(answers))
	for a, isDelegate := range answers {
		if c, err := address.CanonicalAny(a); err == nil && isDelegate {
			byCanonical[c] = true
		}
	}

	out := make(map[string]bool, len(requested))
	for _, key := range requested {
		if answers[key] {
			out[key] = true
			continue
		}
		out[key] = false
		if c, err := address.CanonicalAny(key); err == nil {
			out[key] = byCanonical[c]
		}
	}
	return out
}

// fetchSource runs one source call behind the circuit breaker and folds every
// failure into "missing". NotFound and transport errors are logged distinctly:
// the former is routine, a steady stream of the latter is an infrastructure problem.
func fetchSource[T any](
	ctx context.Context,
	e *Engine,
	source Source,
	network, addr string,
	fn func(context.Context) (*T, error),
) *T {
	if ok, err := e.breaker.canAttempt(source); !ok {
		e.logger.Warn("identity source skipped",
			"source", source, "network", network, "address", addr, "reason", err)
		return nil
	}

	value, err := fn(ctx)
	switch {
	case err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)):
		// The caller went away; that says nothing about the source's health
		e.logger.Debug("identity source call cancelled",
			"source", source, "network", network, "address", addr, "error", err)
		return nil
	case err == nil && value != nil:
		e.breaker.recordSuccess(source)
		return value
	case err == nil || IsNotFound(err):
		e.breaker.recordSuccess(source)
		e.logger.Debug("identity source not found",
			"source", source, "network", network, "address", addr)
		return nil
	default:
		if !IsTransport(err) {
			err = &TransportError{Source: source, Address: addr, Reason: err.Error(), Err: err}
		}
		e.breaker.recordFailure(source, err)
		e.logger.Warn("identity source transport error",
			"source", source, "network", network, "address", addr, "error", err)
		return nil
	}
}
