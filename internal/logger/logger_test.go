package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	log, flush, err := newLogger(Config{Level: "INFO"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("server started")
	flush()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "server started", entry["msg"])
	assert.Contains(t, entry, "ts")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "promptvault.log")
	var buf bytes.Buffer

	log, flush, err := newLogger(Config{
		Level:      "DEBUG",
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}, &buf)
	require.NoError(t, err)

	log.Debug("to file")
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "LOUD"})
	assert.Error(t, err)
}
