// Package config loads the AppView configuration (TOML with environment overrides).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"Agora/internal/core/networks"
)

// Default configuration values used when a field is missing in TOML
const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":8081"
	DefaultRateLimit   = 100
	DefaultCacheSize   = 10_000
	DefaultCacheTTL    = 10 * time.Minute
	DefaultNegativeTTL = time.Minute
	DefaultTimeout     = 5 * time.Second
	DefaultRedisPrefix = "agora:"
)

// Cache backends
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheNone     = "none"
)

// Config is the root application configuration loaded from TOML
type Config struct {
	Log      LogConfig          `toml:"log"`
	Server   ServerConfig       `toml:"server"`
	Cache    CacheConfig        `toml:"cache"`
	Sources  SourcesConfig      `toml:"sources"`
	Identity IdentityConfig     `toml:"identity"`
	Networks []networks.Network `toml:"networks"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text)
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `toml:"addr"`
	// RateLimit is requests per minute per client IP
	RateLimit   int      `toml:"rate_limit"`
	CORSOrigins []string `toml:"cors_origins"`
}

// CacheConfig selects and tunes the source cache
type CacheConfig struct {
	Backend     string        `toml:"backend"`
	RedisURL    string        `toml:"redis_url"`
	RedisPrefix string        `toml:"redis_prefix"`
	DatabaseURL string        `toml:"database_url"`
	TTL         time.Duration `toml:"ttl"`
	NegativeTTL time.Duration `toml:"negative_ttl"`
	Size        int           `toml:"size"`
}

// SourcesConfig holds the upstream endpoints of the four identity sources
type SourcesConfig struct {
	ChainRegistryURL  string        `toml:"chain_registry_url"`
	FederatedNameURL  string        `toml:"federated_name_url"`
	ProfilesURL       string        `toml:"profiles_url"`
	DelegatesURL      string        `toml:"delegates_url"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	AllowPrivateIPs   bool          `toml:"allow_private_ips"`
}

// IdentityConfig tunes the resolution engine
type IdentityConfig struct {
	ManualUsernames     []string      `toml:"manual_usernames"`
	ShortenChars        int           `toml:"shorten_chars"`
	DelegateBatchWindow time.Duration `toml:"delegate_batch_window"`
	DelegateBatchSize   int           `toml:"delegate_batch_size"`
	BreakerThreshold    int           `toml:"breaker_threshold"`
	BreakerOpenDuration time.Duration `toml:"breaker_open_duration"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:      DefaultHTTPAddr,
			RateLimit: DefaultRateLimit,
		},
		Cache: CacheConfig{
			Backend:     CacheMemory,
			RedisPrefix: DefaultRedisPrefix,
			TTL:         DefaultCacheTTL,
			NegativeTTL: DefaultNegativeTTL,
			Size:        DefaultCacheSize,
		},
		Sources: SourcesConfig{
			ChainRegistryURL: "http://localhost:3001",
			FederatedNameURL: "http://localhost:3002",
			ProfilesURL:      "http://localhost:3003",
			DelegatesURL:     "http://localhost:3004",
			Timeout:          DefaultTimeout,
		},
		Identity: IdentityConfig{
			ShortenChars:        6,
			DelegateBatchWindow: 20 * time.Millisecond,
			DelegateBatchSize:   100,
			BreakerThreshold:    5,
			BreakerOpenDuration: time.Minute,
		},
	}
}

// Load reads the TOML config at path, applies defaults for missing fields and
// then environment overrides. An empty path falls back to AGORA_CONFIG, then
// DefaultConfigPath; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("AGORA_CONFIG")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg)

	if len(cfg.Networks) == 0 {
		cfg.Networks = networks.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Cache.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("APPVIEW_PORT"); v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
}

// Validate checks the configuration for values the server cannot start with
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend %q requires redis_url or REDIS_URL", c.Cache.Backend)
		}
	case CachePostgres:
		if c.Cache.DatabaseURL == "" {
			return fmt.Errorf("cache backend %q requires database_url or DATABASE_URL", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 || c.Cache.NegativeTTL < 0 {
		return fmt.Errorf("cache TTLs cannot be negative")
	}

	for name, u := range map[string]string{
		"chain_registry_url": c.Sources.ChainRegistryURL,
		"federated_name_url": c.Sources.FederatedNameURL,
		"profiles_url":       c.Sources.ProfilesURL,
		"delegates_url":      c.Sources.DelegatesURL,
	} {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("sources.%s is required", name)
		}
	}

	if _, err := networks.NewRegistry(c.Networks); err != nil {
		return fmt.Errorf("invalid networks: %w", err)
	}
	return nil
}
