// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pathfinder/internal/config"
)

// initToBuffer resets the global logger and points its console sink at a buffer.
func initToBuffer(t *testing.T, cfg config.LoggerConfig) *bytes.Buffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(cfg, zapcore.AddSync(&buf))
	return &buf
}

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes levels", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "pathfinder",
			Colors:      config.ColorConfig{Info: "green"},
		})

		GetLogger().Info("scan complete", zap.Int("elements", 12))
		Sync()

		out := buf.String()
		assert.Contains(t, out, ansi["green"]+"INFO"+colorReset)
		assert.Contains(t, out, "pathfinder.")
		assert.Contains(t, out, "scan complete")
		assert.Contains(t, out, `"elements": 12`)
	})

	t.Run("unknown color falls back to plain level", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{
			Level:  "info",
			Format: "console",
			Colors: config.ColorConfig{Warn: "ultraviolet"},
		})

		GetLogger().Warn("plain")
		Sync()
		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), "\x1b[")
	})

	t.Run("json format is machine readable", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "json-test"})

		GetLogger().Warn("stale reference", zap.Int("element_id", 7))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "json-test", entry["logger"])
		assert.Equal(t, "stale reference", entry["msg"])
		assert.EqualValues(t, 7, entry["element_id"])
	})

	t.Run("level filtering", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "warn", Format: "json"})

		GetLogger().Info("hidden")
		GetLogger().Error("shown")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "chatty", Format: "json"})

		GetLogger().Debug("debug line")
		GetLogger().Info("info line")
		Sync()

		assert.NotContains(t, buf.String(), "debug line")
		assert.Contains(t, buf.String(), "info line")
	})

	t.Run("file sink receives json", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "pathfinder.log")
		initToBuffer(t, config.LoggerConfig{Level: "info", Format: "console", LogFile: logFile, MaxSize: 1})

		GetLogger().Error("attach failed")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"attach failed"`)
	})

	t.Run("second initialization is ignored", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"})
		first := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "second"}, zapcore.AddSync(&bytes.Buffer{}))
		assert.Same(t, first, GetLogger())

		GetLogger().Info("once")
		Sync()
		assert.Contains(t, buf.String(), `"logger":"first"`)
	})
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Nil(t, globalLogger.Load(), "fallback must not become the global logger")
}

func TestBenignSyncError(t *testing.T) {
	assert.True(t, benignSyncError(errors.New("sync /dev/stdout: invalid argument")))
	assert.True(t, benignSyncError(errors.New("sync /dev/stderr: inappropriate ioctl for device")))
	assert.False(t, benignSyncError(errors.New("disk full")))
}
