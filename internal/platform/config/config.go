// Copyright (c) 2026 Registra. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Fail-Fast: A missing or weak session secret aborts startup; the process
    never serves requests with an insecure configuration.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength is the minimum accepted length of SESSION_SECRET.
const MinSessionSecretLength = 32

// Constant-time verification floor applied around credential checks when
// CONSTANT_TIME_MS is not set.
const (
	DefaultVerifyFloorDev  = 100 * time.Millisecond
	DefaultVerifyFloorProd = 500 * time.Millisecond
)

// weakSecrets lists known default/placeholder secrets that must never reach
// production. Matching is case-insensitive on the trimmed value.
var weakSecrets = []string{
	"secret",
	"password",
	"changeme",
	"development",
	"session-secret",
	"registra-session-secret",
	"00000000000000000000000000000000",
}

// # Configuration Schema

// Config holds all runtime configuration for the Registra API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret signs every session token. Minimum 32 characters;
	// known weak defaults are rejected in production.
	SessionSecret string `env:"SESSION_SECRET,required"`

	// TrustedOrigins is a comma-separated allow-list of origins permitted to
	// issue state-mutating requests. Empty disables origin validation.
	TrustedOrigins string `env:"TRUSTED_ORIGINS"`

	// ConstantTimeMS overrides the latency floor enforced around credential
	// verification. Zero selects the environment-dependent default.
	ConstantTimeMS int `env:"CONSTANT_TIME_MS"`

	// CookieDomain optionally pins the session cookie to a fixed domain.
	CookieDomain string `env:"COOKIE_DOMAIN"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates the
// security-critical fields eagerly.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the startup security invariants. A violation is fatal:
// callers must refuse to begin serving requests.
func (c *Config) Validate() error {
	secret := strings.TrimSpace(c.SessionSecret)

	if len(secret) < MinSessionSecretLength {
		return fmt.Errorf("config: SESSION_SECRET must be at least %d characters", MinSessionSecretLength)
	}

	if c.IsProduction() {
		if isWeakSecret(secret) {
			return fmt.Errorf("config: SESSION_SECRET matches a known weak default value")
		}
	}

	if c.ConstantTimeMS < 0 {
		return fmt.Errorf("config: CONSTANT_TIME_MS must not be negative")
	}

	return nil
}

// VerifyFloor returns the constant-time floor to apply around credential
// verification, honoring the CONSTANT_TIME_MS override.
func (c *Config) VerifyFloor() time.Duration {
	if c.ConstantTimeMS > 0 {
		return time.Duration(c.ConstantTimeMS) * time.Millisecond
	}
	if c.IsProduction() {
		return DefaultVerifyFloorProd
	}
	return DefaultVerifyFloorDev
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// isWeakSecret reports whether the secret is on the deny-list or consists of
// a single repeated character.
func isWeakSecret(secret string) bool {
	lowered := strings.ToLower(secret)

	for _, weak := range weakSecrets {
		if lowered == weak {
			return true
		}
	}

	// A single repeated character carries no entropy regardless of length.
	repeated := true
	for i := 1; i < len(lowered); i++ {
		if lowered[i] != lowered[0] {
			repeated = false
			break
		}
	}

	return repeated
}
