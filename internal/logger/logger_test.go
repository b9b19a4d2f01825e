package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("symbol", "AAPL").Msg("fetched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetched", entry["message"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewWritesFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	path := filepath.Join(t.TempDir(), "logs", "stockscope.log")
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "console", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Warn().Msg("rate limited")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"rate limited"`)
	assert.Contains(t, buf.String(), "rate limited")
}

func TestNewRejectsLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")
}
