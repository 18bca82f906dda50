package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Level is the verbosity a caller asks for when resolving a composition.
type Level string

const (
	LevelVerbose Level = "verbose"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

var levelRank = map[Level]int{
	LevelVerbose: 0,
	LevelInfo:    1,
	LevelWarn:    2,
	LevelError:   3,
}

// ParseLevel validates a verbosity string.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l == "debug" {
		l = LevelVerbose
	}
	if _, ok := levelRank[l]; !ok {
		return LevelInfo, fmt.Errorf("invalid log level %q (expected verbose, info, warn or error)", s)
	}
	return l, nil
}

// LogOptions is passed by value into every component that logs on behalf of a
// single resolution. Nothing reads verbosity from process state.
type LogOptions struct {
	Level  Level
	Indent bool
}

// DefaultLogOptions logs at info without indentation.
func DefaultLogOptions() LogOptions {
	return LogOptions{Level: LevelInfo}
}

// Enabled reports whether a message at level l should be emitted.
func (o LogOptions) Enabled(l Level) bool {
	want, ok := levelRank[o.Level]
	if !ok {
		want = levelRank[LevelInfo]
	}
	return levelRank[l] >= want
}

// IsVerbose reports whether verbose output was requested.
func (o LogOptions) IsVerbose() bool {
	return o.Enabled(LevelVerbose)
}

// Prefix returns the indentation marker for nested output.
func (o LogOptions) Prefix() string {
	if o.Indent {
		return "│ "
	}
	return ""
}

// Log emits msg at level l if the options allow it.
func (o LogOptions) Log(logger *Logger, l Level, msg string, fields ...zap.Field) {
	if logger == nil || !o.Enabled(l) {
		return
	}
	msg = o.Prefix() + msg
	switch l {
	case LevelVerbose:
		logger.Debug(msg, fields...)
	case LevelWarn:
		logger.Warn(msg, fields...)
	case LevelError:
		logger.Error(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// Verbose is shorthand for Log(logger, LevelVerbose, ...).
func (o LogOptions) Verbose(logger *Logger, msg string, fields ...zap.Field) {
	o.Log(logger, LevelVerbose, msg, fields...)
}
