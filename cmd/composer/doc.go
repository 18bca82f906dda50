// Package main is the composer command line.
//
// composer resolves the metadata of compositions defined in a bundle by
// running the bundle in an isolated sandbox page. The target is either the
// URL of an already served bundle or a directory holding one.
//
// Usage:
//
//	# One composition, printed as JSON on stdout
//	composer select ./build MyComp --props '{"title":"Hello"}'
//
//	# Every composition of a served bundle
//	composer list http://localhost:3000 --timeout 60000 --log verbose
//
// Flags:
//   - --props: inline JSON or a .json, .yaml or .toml file
//   - --env-file, --env KEY=VALUE: env variables exposed to the bundle,
//     on top of REMOTION_* variables of the process
//   - --timeout: per-step budget in milliseconds
//   - --port: content server port
//
// Configuration defaults come from the environment (COMPOSER_*, SANDBOX_*,
// FETCH_*, SERVE_HOST, LOG_*). Logs go to stderr.
//
// Exit codes:
//   - 0: metadata printed
//   - 1: resolution failed
//   - 130: interrupted
package main
