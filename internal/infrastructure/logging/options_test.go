package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "verbose", want: LevelVerbose},
		{in: "debug", want: LevelVerbose},
		{in: " INFO ", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogOptionsEnabled(t *testing.T) {
	info := LogOptions{Level: LevelInfo}
	assert.False(t, info.Enabled(LevelVerbose))
	assert.True(t, info.Enabled(LevelInfo))
	assert.True(t, info.Enabled(LevelError))

	verbose := LogOptions{Level: LevelVerbose}
	assert.True(t, verbose.IsVerbose())

	// Unknown level behaves like info
	assert.False(t, LogOptions{Level: "bogus"}.Enabled(LevelVerbose))
}

func TestLogOptionsIndent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	opts := LogOptions{Level: LevelVerbose, Indent: true}
	opts.Verbose(logger, "Running calculateComposition()...")
	opts.Log(logger, LevelWarn, "slow")

	quiet := LogOptions{Level: LevelError}
	quiet.Verbose(logger, "dropped")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "│ Running calculateComposition()...", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestNewAcceptsVerbose(t *testing.T) {
	logger, err := New(Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
}
