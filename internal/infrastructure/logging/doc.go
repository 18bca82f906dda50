// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Resolution-scoped verbosity is carried by LogOptions, a plain value that is
// handed to each component call instead of being read from global state:
//   - verbose: step timings, sandbox console lines, teardown progress
//   - info: resolution start and outcome
//   - warn / error: only problems
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	opts := logging.LogOptions{Level: logging.LevelVerbose, Indent: true}
//	opts.Verbose(logger, "Running calculateComposition()...")
//	logger.Error("Failed to start content server", zap.Error(err))
package logging
