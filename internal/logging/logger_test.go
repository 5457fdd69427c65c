package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/cartelera/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestBuildWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "app.log")

	log := build(config.LogConfig{Format: "json", File: file, MaxSizeMB: 1}, zapcore.InfoLevel, &console)
	log.Info("venue refreshed", zap.String("venue", "palafox"))
	log.Debug("dropped")
	require.NoError(t, log.Sync())

	assert.Contains(t, console.String(), `"venue":"palafox"`)
	assert.NotContains(t, console.String(), "dropped")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "venue refreshed")
}
