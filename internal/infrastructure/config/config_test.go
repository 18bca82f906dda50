package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Resolve config
	assert.Equal(t, 30000, cfg.Resolve.TimeoutMS)
	assert.Equal(t, 30*time.Second, cfg.Resolve.Timeout())
	assert.Equal(t, 2, cfg.Resolve.InjectRetries)
	assert.Equal(t, 1, cfg.Resolve.Concurrency)
	assert.Equal(t, 0, cfg.Resolve.Port)

	// Sandbox config
	assert.Equal(t, 8, cfg.Sandbox.MaxPages)
	assert.Equal(t, 10*time.Second, cfg.Sandbox.LaunchTimeout)
	assert.True(t, cfg.Sandbox.Console)

	// Fetch config
	assert.Equal(t, 3, cfg.Fetch.Retries)

	// Server config
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"LOG_LEVEL":               "verbose",
		"LOG_DEV":                 "true",
		"COMPOSER_TIMEOUT_MS":     "5000",
		"COMPOSER_INJECT_RETRIES": "4",
		"COMPOSER_PORT":           "3000",
		"SANDBOX_MAX_PAGES":       "2",
		"SANDBOX_LAUNCH_TIMEOUT":  "3s",
		"FETCH_RPS":               "12.5",
		"SERVE_HOST":              "0.0.0.0",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "verbose", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 5*time.Second, cfg.Resolve.Timeout())
	assert.Equal(t, 4, cfg.Resolve.InjectRetries)
	assert.Equal(t, 3000, cfg.Resolve.Port)
	assert.Equal(t, 2, cfg.Sandbox.MaxPages)
	assert.Equal(t, 3*time.Second, cfg.Sandbox.LaunchTimeout)
	assert.Equal(t, 12.5, cfg.Fetch.RequestsPerSecond)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Untouched values keep their defaults
	assert.Equal(t, 1, cfg.Resolve.Concurrency)
	assert.Equal(t, 3, cfg.Fetch.Retries)
}

func TestLoadOrDefaultFallsBackOnBadInput(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric timeout", key: "COMPOSER_TIMEOUT_MS", value: "soon"},
		{name: "bad duration", key: "SANDBOX_LAUNCH_TIMEOUT", value: "ten"},
		{name: "bad bool", key: "SANDBOX_CONSOLE", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}
