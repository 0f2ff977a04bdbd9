package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"voxtask/internal/config"
)

func TestNewBuildsConfiguredLevel(t *testing.T) {
	log, level, err := New(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer func() { _ = log.Sync() }()

	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, _, err = New(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestAtomicLevelIsLive(t *testing.T) {
	log, level, err := New(config.LoggingConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	defer func() { _ = log.Sync() }()

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
