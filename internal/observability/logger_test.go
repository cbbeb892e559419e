// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/3leaps/taintsentry/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("console output is named and leveled", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "taintsentry",
		}, zapcore.AddSync(&buf))

		logger.Named("scan").Debug("file analyzed", zap.String("file", "a.py"))
		require.NoError(t, logger.Sync())

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "taintsentry.scan.")
		assert.Contains(t, output, "file analyzed")
		assert.Contains(t, output, "a.py")
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))

		logger.Info("hello", zap.Int("files", 3))
		require.NoError(t, logger.Sync())

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, float64(3), entry["files"])
	})

	t.Run("level filters lower entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))

		logger.Info("hidden")
		logger.Warn("shown")
		require.NoError(t, logger.Sync())

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))

		logger.Debug("hidden")
		logger.Info("shown")
		require.NoError(t, logger.Sync())

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("file sink writes json", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "taintsentry.log")
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{
			Level:   "info",
			Format:  "console",
			LogFile: logFile,
			MaxSize: 1,
		}, zapcore.AddSync(&buf))

		logger.Info("to file")
		Sync(logger)

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		line := strings.TrimSpace(string(data))
		assert.True(t, strings.HasPrefix(line, "{"), "file entries should be JSON: %s", line)
		assert.Contains(t, line, "to file")
	})
}

func TestSync_Nil(t *testing.T) {
	assert.NotPanics(t, func() { Sync(nil) })
}
