package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI)
	assert.Equal(t, ":memory:", cfg.Store.SessionDB)
	assert.True(t, cfg.Networks.EVM.Enabled)
	assert.EqualValues(t, 52014, cfg.Networks.EVM.ChainID)
	assert.EqualValues(t, 56, cfg.Networks.Binance.ChainID)
	assert.EqualValues(t, 137, cfg.Networks.Polygon.ChainID)
	assert.Equal(t, 30*time.Second, cfg.Networks.Solana.Timeout())
	assert.Equal(t, 5*time.Minute, cfg.Security.SessionTTL())
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9090"
networks:
  evm:
    rpc: "https://example.com/rpc"
    chain_id: 52014
    timeout_seconds: 5
security:
  session_ttl_minutes: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "https://example.com/rpc", cfg.Networks.EVM.RPC)
	assert.Equal(t, 5*time.Second, cfg.Networks.EVM.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Security.SessionTTL())
	// Untouched sections keep their defaults.
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CRYPTODIAL_MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("CRYPTODIAL_ENCRYPTION_SALT", "env-salt")
	t.Setenv("CRYPTODIAL_AT_API_KEY", "env-key")
	t.Setenv("CRYPTODIAL_SESSION_TTL", "15")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db.internal:27017", cfg.Store.MongoURI)
	assert.Equal(t, "env-salt", cfg.Security.EncryptionSalt)
	assert.Equal(t, "env-key", cfg.Notify.APIKey)
	assert.Equal(t, 15*time.Minute, cfg.Security.SessionTTL())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Defaults()
	cfg.Server.Listen = ":7070"
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", got.Server.Listen)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"off", LogLevelOff},
		{"none", LogLevelOff},
		{"error", LogLevelError},
		{"DEBUG", LogLevelDebug},
		{" debug ", LogLevelDebug},
		{"bogus", LogLevelError},
		{"", LogLevelError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), "level %q", tt.in)
	}
}
