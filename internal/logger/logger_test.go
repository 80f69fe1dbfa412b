package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aleister1102/crawlgate/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultLogger(t *testing.T) {
	_, err := New(config.NewDefaultLogConfig())
	require.NoError(t, err)
}

func TestBuild_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LogConfig{LogLevel: "warn", LogFormat: "json"}

	log, err := NewLoggerBuilder().WithConsole(&buf).WithConfig(cfg).Build()
	require.NoError(t, err)

	log.Info().Msg("dropped")
	log.Warn().Str("component", "Test").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "Test", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestBuild_TextFormatHasNoColour(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLoggerBuilder().WithConsole(&buf).WithConfig(config.LogConfig{LogFormat: "text"}).Build()
	require.NoError(t, err)

	log.Info().Msg("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestBuild_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "crawlgate.log")
	cfg := config.LogConfig{LogFile: path, LogFormat: "json", LogLevel: "debug", MaxLogSizeMB: 1}

	log, err := NewLoggerBuilder().WithConsole(&bytes.Buffer{}).WithConfig(cfg).Build()
	require.NoError(t, err)
	log.Debug().Msg("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatConsole, ParseFormat("console"))
	assert.Equal(t, FormatConsole, ParseFormat("bogus"))
	assert.Equal(t, "json", FormatJSON.String())
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	lb := NewLoggerBuilder()
	lb.config.EnableFile = true
	_, err := lb.Build()
	assert.ErrorContains(t, err, "file path required")

	lb = NewLoggerBuilder()
	lb.config.EnableConsole = false
	_, err = lb.Build()
	assert.ErrorContains(t, err, "no output writers")
}
