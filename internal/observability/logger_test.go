package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cboone/lazynode/config"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "checker",
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Warn("resolve failed", zap.String("chain", `id=save "save"`))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "exactly one JSON line: %s", buf.String())
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "checker", entry["logger"])
	assert.Equal(t, "resolve failed", entry["msg"])
	assert.Equal(t, `id=save "save"`, entry["chain"])
}

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "checker",
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("resolved")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "checker.")
	assert.Contains(t, out, "resolved")
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLoggerTo(config.LoggerConfig{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `bad log level "loud"`)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazynode.log")
	logger, err := NewLoggerTo(config.LoggerConfig{
		Level:   "debug",
		Format:  "console",
		LogFile: path,
		MaxSize: 1,
	}, zapcore.AddSync(&bytes.Buffer{}))
	require.NoError(t, err)

	logger.Info("to file", zap.Int("attempts", 3))
	require.NoError(t, logger.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), "file output is JSON even for a console logger")
	assert.Equal(t, "to file", entry["msg"])
	assert.EqualValues(t, 3, entry["attempts"])
}

func TestSyncIgnoresTerminalErrors(t *testing.T) {
	var stderr bytes.Buffer
	Sync(zap.NewNop(), &stderr)
	assert.Empty(t, stderr.String())
}
