// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the serve command needs. All fields are read
// from PARLEY_* environment variables; flags may override a few of them.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`

	// FlowsDir is scanned at startup for *.yaml / *.yml / *.json flow
	// documents to register.
	FlowsDir string `env:"FLOWS_DIR"`

	// RedisURL enables the Redis session store and distributed turn
	// locking when set (redis://host:port/db).
	RedisURL string `env:"REDIS_URL"`

	// SessionsDir enables the file session store when set and RedisURL is
	// not. Sessions land as JSON files under this directory.
	SessionsDir string `env:"SESSIONS_DIR"`

	// SessionKey enables at-rest session encryption when set. Must be
	// exactly 32 bytes (AES-256).
	SessionKey string `env:"SESSION_ENCRYPTION_KEY"`

	// SessionTTL bounds how long idle sessions live in Redis. Zero means
	// no expiry.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// PostgresURL enables the Postgres flow store when set.
	PostgresURL string `env:"POSTGRES_URL"`

	// OpenAIKey and AnthropicKey register the respective model providers
	// for ai_chat nodes when set.
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`

	// DefaultProvider names the completer used when a node does not pick
	// one. Defaults to the first configured provider.
	DefaultProvider string `env:"DEFAULT_PROVIDER"`

	// ActionTimeout caps outbound action HTTP calls that do not set their
	// own timeout_seconds.
	ActionTimeout time.Duration `env:"ACTION_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from PARLEY_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PARLEY_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.SessionKey != "" && len(c.SessionKey) != 32 {
		return fmt.Errorf("config: session encryption key must be 32 bytes, got %d", len(c.SessionKey))
	}
	if c.DefaultProvider != "" && c.OpenAIKey == "" && c.AnthropicKey == "" {
		return fmt.Errorf("config: default provider %q set but no provider key configured", c.DefaultProvider)
	}
	return nil
}
