package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"Agora/internal/core/networks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, networks.Defaults(), cfg.Networks)
	assert.Equal(t, 5, cfg.Identity.BreakerThreshold)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[server]
addr = ":9000"
rate_limit = 30
cors_origins = ["https://agora.example.com"]

[cache]
backend = "none"
ttl = "30m"
negative_ttl = "2m"

[sources]
chain_registry_url = "https://indexer.example.com"
federated_name_url = "https://names.example.com"
profiles_url = "https://profiles.example.com"
delegates_url = "https://delegates.example.com"
timeout = "3s"
requests_per_second = 20.5

[identity]
manual_usernames = ["handpicked_name_123456789"]
shorten_chars = 4
delegate_batch_window = "50ms"

[[networks]]
name = "polkadot"
ss58_prefix = 0
federated_naming = true

[[networks]]
name = "moonbeam"
account_format = "evm"
registry_url = "https://moonbeam-indexer.example.com"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://agora.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.NegativeTTL)
	assert.Equal(t, DefaultCacheSize, cfg.Cache.Size)
	assert.Equal(t, 3*time.Second, cfg.Sources.Timeout)
	assert.InDelta(t, 20.5, cfg.Sources.RequestsPerSecond, 0.001)
	assert.Equal(t, []string{"handpicked_name_123456789"}, cfg.Identity.ManualUsernames)
	assert.Equal(t, 4, cfg.Identity.ShortenChars)
	assert.Equal(t, 50*time.Millisecond, cfg.Identity.DelegateBatchWindow)
	assert.Equal(t, 100, cfg.Identity.DelegateBatchSize)

	require.Len(t, cfg.Networks, 2)
	assert.Equal(t, networks.FormatEVM, cfg.Networks[1].AccountFormat)
	assert.Equal(t, "https://moonbeam-indexer.example.com", cfg.Networks[1].RegistryURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "memory"
`)
	t.Setenv("AGORA_CONFIG", path)
	t.Setenv("APPVIEW_PORT", "7777")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CACHE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://agora@localhost/agora?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, CachePostgres, cfg.Cache.Backend)
	assert.Equal(t, "postgres://agora@localhost/agora?sslmode=disable", cfg.Cache.DatabaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "[cache]\nbackend = \"memcached\""},
		{"redis without url", "[cache]\nbackend = \"redis\""},
		{"duplicate network", "[[networks]]\nname = \"polkadot\"\n[[networks]]\nname = \"Polkadot\""},
		{"prefix out of range", "[[networks]]\nname = \"big\"\nss58_prefix = 20000"},
		{"missing source", "[sources]\nprofiles_url = \"\""},
		{"bad toml", "[cache\nbackend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REDIS_URL", "")
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
