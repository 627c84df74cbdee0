package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cropclock.log")
	logger := New(Config{Level: "warn", File: path})

	logger.Info("dropped")
	logger.Warn("model missing", zap.String("task", "npk"))
	_ = logger.Sync()

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(payload, &entry))
	assert.Equal(t, "model missing", entry["msg"])
	assert.Equal(t, "npk", entry["task"])
	assert.Equal(t, "warn", entry["level"])
}
