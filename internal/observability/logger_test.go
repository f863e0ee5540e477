// internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/solenoidlabs/webpilot/internal/config"
)

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	buf := &zaptest.Buffer{}

	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "json-test",
	}, buf)

	GetLogger().Warn("structured message", zap.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.Lines()[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "json-test", entry["logger"])
	assert.Equal(t, "structured message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	buf := &zaptest.Buffer{}

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "console-test",
	}, buf)

	GetLogger().Info("readable message")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "readable message")
	assert.Contains(t, out, "console-test")
}

func TestLevelFiltering(t *testing.T) {
	ResetForTest()
	buf := &zaptest.Buffer{}

	Initialize(config.LoggerConfig{
		Level:       "warn",
		Format:      "json",
		ServiceName: "filter-test",
	}, buf)

	GetLogger().Info("should be dropped")
	GetLogger().Error("should be kept")

	out := buf.String()
	assert.NotContains(t, out, "should be dropped")
	assert.Contains(t, out, "should be kept")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	buf := &zaptest.Buffer{}

	Initialize(config.LoggerConfig{
		Level:       "not-a-level",
		Format:      "json",
		ServiceName: "fallback-test",
	}, buf)

	GetLogger().Debug("below info")
	GetLogger().Info("at info")

	out := buf.String()
	assert.NotContains(t, out, "below info")
	assert.Contains(t, out, "at info")
}

func TestFileOutputIsWritten(t *testing.T) {
	ResetForTest()
	logFile := filepath.Join(t.TempDir(), "webpilot-test.log")

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "file-test",
		LogFile:     logFile,
		MaxSize:     1,
	}, &zaptest.Buffer{})

	GetLogger().Error("this should reach the file")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "this should reach the file")
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	buf := &zaptest.Buffer{}

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, buf)
	first := GetLogger()

	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "second"}, buf)
	second := GetLogger()

	assert.Same(t, first, second)
	second.Info("which name")
	assert.Contains(t, buf.String(), "first")
	assert.NotContains(t, buf.String(), "second")
}

func TestGetLoggerBeforeInitialization(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)
}
