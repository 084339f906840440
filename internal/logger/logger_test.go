package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{
			Level:   "info",
			Console: true,
			Out:     &buf,
		})
		require.NoError(t, err)
		defer logger.Close()

		logger.Info().Str("tool", "SUM").Msg("verified")
		logger.Debug().Msg("hidden")

		assert.Contains(t, buf.String(), `"tool":"SUM"`)
		assert.NotContains(t, buf.String(), "hidden")
	})

	t.Run("create logger with file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "vtool.log")

		logger, err := New(Config{
			Level:      "debug",
			File:       logFile,
			MaxSize:    1,
			MaxBackups: 1,
		})
		require.NoError(t, err)

		logger.Info().Msg("test message")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "test message")
	})

	t.Run("create logger with redaction", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{
			Level:     "info",
			Console:   true,
			Out:       &buf,
			Redaction: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, logger.redactor)

		logger.Info().Str("key", "sk-ant-REDACTED").Msg("profile loaded")
		assert.Contains(t, buf.String(), "[REDACTED]")
		assert.NotContains(t, buf.String(), "sk-ant-api03")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetZerolog().GetLevel())
	})

	t.Run("pretty console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(Config{Level: "info", Console: true, Pretty: true, Out: &buf})
		require.NoError(t, err)

		logger.Warn().Msg("final answer rejected")
		assert.True(t, strings.Contains(buf.String(), "final answer rejected"))
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.True(t, cfg.Compress)
}
