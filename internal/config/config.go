package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the simulator process's own bootstrap configuration: where to
// find station templates and where to persist their configuration documents,
// plus the optional shared-infrastructure addresses named in SPEC_FULL's
// DOMAIN STACK wiring table. It is distinct from the per-station OCPP
// "template"/"configuration" JSON documents (spec.md §6), which keep their
// own bespoke loader in internal/template.
type Config struct {
	LogLevel string `env:"LOG_LEVEL"`

	TemplateFile     string `env:"TEMPLATE_FILE"`
	ConfigDir        string `env:"CONFIG_DIR"`
	NumberOfStations int    `env:"NUMBER_OF_STATIONS"`

	// CacheCapacity bounds the process-wide parsed-document LRU (spec.md §9).
	CacheCapacity int `env:"CACHE_CAPACITY"`
	// RedisAddr optionally backs the document cache with a shared Redis tier
	// (see internal/cache.DocumentCache); empty disables it.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisDB       int           `env:"REDIS_DB"`
	CacheTTL      time.Duration `env:"CACHE_TTL_SECONDS"`

	// PostgresDSN is loaded but not read by the process: internal/app does not
	// construct the configstore/postgres persister, whatever its value.
	PostgresDSN string `env:"POSTGRES_DSN"`

	// SecretKeyMaterial derives the key that seals a station's Basic-Auth
	// password before it is written to disk (internal/secret). Empty
	// disables sealing and the password is persisted in plaintext.
	SecretKeyMaterial string `env:"SECRET_KEY_MATERIAL"`

	// BearerSigningSecret signs a self-minted bearer token when a station's
	// template carries no operator-issued one (internal/channel.IssueBearerToken).
	BearerSigningSecret string `env:"BEARER_SIGNING_SECRET"`
}

// Default returns a Config with the simulator's baseline defaults, the same
// role backend/services/ocpp-server/internal/config/config.go's Load plays
// for the teacher: defaults first, then Load overlays file/env on top.
func Default() Config {
	return Config{
		LogLevel:         "info",
		ConfigDir:        "./stations",
		NumberOfStations: 1,
		CacheCapacity:    256,
		CacheTTL:         time.Hour,
	}
}

// Load returns the simulator's bootstrap configuration: defaults, overlaid by
// CONFIG_FILE (if set) and environment variables, then validated.
func Load() (Config, error) {
	cfg := Default()
	if err := LoadInto(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TemplateFile == "" {
		return errors.New("config: TEMPLATE_FILE is required")
	}
	if c.NumberOfStations <= 0 {
		return fmt.Errorf("config: NUMBER_OF_STATIONS must be positive, got %d", c.NumberOfStations)
	}
	return nil
}
