package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PARLEY_ADDR", ":9090")
	t.Setenv("PARLEY_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PARLEY_SESSION_TTL", "1h")
	t.Setenv("PARLEY_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "1h0m0s", cfg.SessionTTL.String())
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PARLEY_LOG_FORMAT", "xml")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown log format")

	t.Setenv("PARLEY_LOG_FORMAT", "text")
	t.Setenv("PARLEY_LOG_LEVEL", "loud")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown log level")
}

func TestLoadRejectsShortSessionKey(t *testing.T) {
	t.Setenv("PARLEY_SESSION_ENCRYPTION_KEY", "too-short")
	_, err := Load()
	assert.ErrorContains(t, err, "must be 32 bytes")
}

func TestLoadRejectsProviderWithoutKey(t *testing.T) {
	t.Setenv("PARLEY_DEFAULT_PROVIDER", "openai")
	_, err := Load()
	assert.ErrorContains(t, err, "no provider key")
}
