// Package app assembles the resolution engine and its sources from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"Agora/internal/config"
	"Agora/internal/core/identity"
	"Agora/internal/core/networks"
	"Agora/internal/db/migrations"
	"Agora/internal/sources/cache"
	"Agora/internal/sources/delegates"
	"Agora/internal/sources/naming"
	"Agora/internal/sources/profiles"
	"Agora/internal/sources/registry"
	"Agora/internal/sources/transport"
	"Agora/internal/substrate/address"
)

// cacheSweepInterval is how often expired rows are removed from the postgres cache
const cacheSweepInterval = 10 * time.Minute

// App holds the wired engine and everything that must be closed with it
type App struct {
	Engine   *identity.Engine
	Codec    *address.Codec
	Networks *networks.Registry
	Cache    *cache.Layer
	closers  []func() error
}

// New wires networks, codec, source clients, cache and engine from cfg
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nets, err := networks.NewRegistry(cfg.Networks)
	if err != nil {
		return nil, fmt.Errorf("invalid networks: %w", err)
	}
	codec := address.NewCodec(nets)

	a := &App{Codec: codec, Networks: nets}

	store, err := a.openStore(ctx, cfg.Cache, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Cache = cache.NewLayer(store, cache.Options{
		TTL:         cfg.Cache.TTL,
		NegativeTTL: cfg.Cache.NegativeTTL,
	})

	sources, err := newSources(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	sources = identity.Sources{
		Chain:     a.Cache.WrapChainRegistry(sources.Chain),
		Naming:    a.Cache.WrapFederatedNames(sources.Naming),
		Profiles:  a.Cache.WrapProfiles(sources.Profiles),
		Delegates: a.Cache.WrapDelegates(sources.Delegates),
	}

	a.Engine = identity.NewEngine(sources, codec, nets, identity.Config{
		ManualUsernames:     cfg.Identity.ManualUsernames,
		ShortenChars:        cfg.Identity.ShortenChars,
		DelegateBatchWindow: cfg.Identity.DelegateBatchWindow,
		DelegateBatchSize:   cfg.Identity.DelegateBatchSize,
		BreakerThreshold:    cfg.Identity.BreakerThreshold,
		BreakerOpenDuration: cfg.Identity.BreakerOpenDuration,
	}, logger)

	return a, nil
}

// newSources builds the four HTTP source clients
func newSources(cfg config.Config, logger *slog.Logger) (identity.Sources, error) {
	opts := transport.Options{
		Logger:            logger,
		RequestsPerSecond: cfg.Sources.RequestsPerSecond,
		Timeout:           cfg.Sources.Timeout,
		AllowPrivateIPs:   cfg.Sources.AllowPrivateIPs,
	}

	chainDefault, err := registry.NewClient(cfg.Sources.ChainRegistryURL, opts)
	if err != nil {
		return identity.Sources{}, fmt.Errorf("chain registry client: %w", err)
	}
	chain, err := registry.NewRouter(chainDefault, cfg.Networks, opts)
	if err != nil {
		return identity.Sources{}, err
	}

	names, err := naming.NewClient(cfg.Sources.FederatedNameURL, opts)
	if err != nil {
		return identity.Sources{}, fmt.Errorf("federated name client: %w", err)
	}

	policy := identity.NewUsernamePolicy(cfg.Identity.ManualUsernames)
	profileClient, err := profiles.NewClient(cfg.Sources.ProfilesURL, policy, opts)
	if err != nil {
		return identity.Sources{}, fmt.Errorf("profile client: %w", err)
	}

	delegateClient, err := delegates.NewClient(cfg.Sources.DelegatesURL, opts)
	if err != nil {
		return identity.Sources{}, fmt.Errorf("delegate client: %w", err)
	}

	return identity.Sources{
		Chain:     chain,
		Naming:    names,
		Profiles:  profileClient,
		Delegates: delegateClient,
	}, nil
}

func (a *App) openStore(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NoopStore{}, nil

	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		logger.Info("source cache using redis")
		return store, nil

	case config.CachePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			return nil, err
		}
		logger.Info("source cache using postgres, migrations applied")

		store := cache.NewPostgresStore(db)
		sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.closers = append(a.closers, func() error { cancel(); return nil })
		go sweepExpired(sweepCtx, store)
		return store, nil

	default:
		logger.Info("source cache using memory", "size", cfg.Size)
		return cache.NewMemoryStore(cfg.Size, maxTTL(cfg)), nil
	}
}

func maxTTL(cfg config.CacheConfig) time.Duration {
	if cfg.NegativeTTL > cfg.TTL {
		return cfg.NegativeTTL
	}
	return cfg.TTL
}

// sweepExpired periodically deletes expired cache rows
func sweepExpired(ctx context.Context, store *cache.PostgresStore) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx)
			if err != nil {
				log.Printf("[source-cache] failed to delete expired entries: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("[source-cache] removed %d expired entries", deleted)
			}
		}
	}
}

// Close releases the cache backend. Closers run in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
