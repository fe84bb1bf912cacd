// Copyright (c) 2026 Registra. All rights reserved.

package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvik/registra/internal/platform/config"
)

/*
TestConfig_Validate_SecretLength verifies the minimum secret length rule.
*/
func TestConfig_Validate_SecretLength(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"long_random_secret", "f3k9s8d7f6g5h4j3k2l1q0w9e8r7t6y5", false},
		{"exactly_32_chars", strings.Repeat("ab", 16), false},
		{"too_short", "short-secret", true},
		{"empty", "", true},
		{"whitespace_padding_ignored", "   " + strings.Repeat("xy", 16) + "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Environment:   "development",
				SessionSecret: tt.secret,
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SESSION_SECRET")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

/*
TestConfig_Validate_WeakSecrets verifies that weak defaults are fatal in
production but tolerated in development.
*/
func TestConfig_Validate_WeakSecrets(t *testing.T) {
	// Pad deny-list entries to pass the length check so only the weak-value
	// rule is under test.
	repeated := strings.Repeat("a", 40)

	tests := []struct {
		name        string
		environment string
		secret      string
		wantErr     bool
	}{
		{"production_repeated_char", "production", repeated, true},
		{"production_all_zeroes", "production", "00000000000000000000000000000000", true},
		{"development_repeated_char", "development", repeated, false},
		{"production_strong", "production", "f3k9s8d7f6g5h4j3k2l1q0w9e8r7t6y5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Environment:   tt.environment,
				SessionSecret: tt.secret,
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "weak")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

/*
TestConfig_VerifyFloor checks the environment defaults and explicit override.
*/
func TestConfig_VerifyFloor(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		overrideMS  int
		want        time.Duration
	}{
		{"development_default", "development", 0, 100 * time.Millisecond},
		{"production_default", "production", 0, 500 * time.Millisecond},
		{"override_wins", "production", 250, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Environment:    tt.environment,
				ConstantTimeMS: tt.overrideMS,
			}
			assert.Equal(t, tt.want, cfg.VerifyFloor())
		})
	}
}

/*
TestConfig_Validate_NegativeFloor rejects a negative delay override.
*/
func TestConfig_Validate_NegativeFloor(t *testing.T) {
	cfg := &config.Config{
		Environment:    "development",
		SessionSecret:  strings.Repeat("ab", 16),
		ConstantTimeMS: -10,
	}
	require.Error(t, cfg.Validate())
}
