package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, []string{"usjreal.asumirai.info", "en.usjreal.asumirai.info"}, cfg.Upstream.AllowHosts)
	assert.Equal(t, "usjreal.asumirai.info", cfg.Upstream.PrimaryHost)
	assert.Equal(t, 5, cfg.Upstream.MaxRedirects)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, DefaultTTLSeconds, cfg.Cache.DefaultTTLSec)
	assert.Equal(t, MaxTTLSeconds, cfg.Cache.MaxTTLSec)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9000"
  log_level: debug
upstream:
  allow_hosts:
    - stats.example
  primary_host: stats.example
  max_redirects: 3
cache:
  backend: redis
  redis:
    addr: redis.internal:6379
    db: 2
slugs:
  mario_kart: https://stats.example/attraction/mario_kart_koopa_challenge.html
catalog:
  - id: hw_dream
    display_name: ハリウッド・ドリーム・ザ・ライド
    short_name: ハリドリ
    active: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"stats.example"}, cfg.Upstream.AllowHosts)
	assert.Equal(t, 3, cfg.Upstream.MaxRedirects)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "https://stats.example/attraction/mario_kart_koopa_challenge.html", cfg.Slugs["mario_kart"])
	require.Len(t, cfg.Catalog, 1)
	assert.Equal(t, "hw_dream", cfg.Catalog[0].ID)
	assert.Equal(t, "ハリドリ", cfg.Catalog[0].ShortName)
	assert.True(t, cfg.Catalog[0].Active)
}

func TestLoadValidation(t *testing.T) {
	t.Run("primary_host_must_be_allowed", func(t *testing.T) {
		path := writeConfigFile(t, `
upstream:
  allow_hosts: [a.example]
  primary_host: b.example
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown_cache_backend", func(t *testing.T) {
		path := writeConfigFile(t, "cache:\n  backend: memcached\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("primary_host_defaults_to_first_allowed", func(t *testing.T) {
		path := writeConfigFile(t, `
upstream:
  allow_hosts: [only.example]
  primary_host: ""
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "only.example", cfg.Upstream.PrimaryHost)
	})
}
