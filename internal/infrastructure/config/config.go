package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Logging LogConfig
	Resolve ResolveConfig
	Sandbox SandboxConfig
	Fetch   FetchConfig
	Server  ServerConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// ResolveConfig holds defaults applied to each resolution request.
type ResolveConfig struct {
	TimeoutMS     int    `envconfig:"COMPOSER_TIMEOUT_MS" default:"30000"`
	InjectRetries int    `envconfig:"COMPOSER_INJECT_RETRIES" default:"2"`
	Concurrency   int    `envconfig:"COMPOSER_CONCURRENCY" default:"1"`
	Port          int    `envconfig:"COMPOSER_PORT" default:"0"`
	AssetDir      string `envconfig:"COMPOSER_ASSET_DIR" default:""`
}

// SandboxConfig holds sandbox launch settings.
type SandboxConfig struct {
	MaxPages      int           `envconfig:"SANDBOX_MAX_PAGES" default:"8"`
	LaunchTimeout time.Duration `envconfig:"SANDBOX_LAUNCH_TIMEOUT" default:"10s"`
	MaxCallStack  int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	Console       bool          `envconfig:"SANDBOX_CONSOLE" default:"true"`
}

// FetchConfig holds outbound HTTP settings.
type FetchConfig struct {
	Timeout           time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	Retries           int           `envconfig:"FETCH_RETRIES" default:"3"`
	RequestsPerSecond float64       `envconfig:"FETCH_RPS" default:"0"`
}

// ServerConfig holds content server settings.
type ServerConfig struct {
	Host string `envconfig:"SERVE_HOST" default:"127.0.0.1"`
}

// Timeout returns the resolution timeout as a duration.
func (r ResolveConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Resolve: ResolveConfig{
			TimeoutMS:     30000,
			InjectRetries: 2,
			Concurrency:   1,
			Port:          0,
		},
		Sandbox: SandboxConfig{
			MaxPages:      8,
			LaunchTimeout: 10 * time.Second,
			MaxCallStack:  1024,
			Console:       true,
		},
		Fetch: FetchConfig{
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
		},
	}
}
