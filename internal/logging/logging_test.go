package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{5, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestNew_FiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(VerbosityQuiet, false, &buf)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("path", "pkg/__init__.py"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "pkg/__init__.py")
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(VerbosityDebug, false, &buf)

	logger.Debug("resolving module")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "resolving module")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(VerbosityInfo, true, &buf)

	logger.Info("no exported symbols, skipping", zap.String("path", "a/__init__.py"))
	require.NoError(t, logger.Sync())

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "no exported symbols, skipping", entry["msg"])
	assert.Equal(t, "a/__init__.py", entry["path"])
}
