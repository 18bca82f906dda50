// Package config provides 12-factor configuration management for composer.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags override environment variables for a single invocation.
//
// Configuration Sections:
//   - Logging: Log level and output format
//   - Resolve: Default timeout, injection retries, server concurrency and port
//   - Sandbox: Page limits, launch timeout, call stack depth, console capture
//   - Fetch: Outbound HTTP timeout, retries and rate limit
//   - Server: Content server bind host
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("timeout: %s\n", cfg.Resolve.Timeout())
//
// Environment Variables:
//   - LOG_LEVEL, LOG_DEV
//   - COMPOSER_TIMEOUT_MS, COMPOSER_INJECT_RETRIES, COMPOSER_CONCURRENCY, COMPOSER_PORT, COMPOSER_ASSET_DIR
//   - SANDBOX_MAX_PAGES, SANDBOX_LAUNCH_TIMEOUT, SANDBOX_MAX_CALL_STACK, SANDBOX_CONSOLE
//   - FETCH_TIMEOUT, FETCH_RETRIES, FETCH_RPS
//   - SERVE_HOST
package config
