package logging

import (
	"os"
	"path/filepath"
	"testing"

	"songforge/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatsAndLevels(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger, closer, err = New(config.LoggingConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "songforge.log")

	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.WithField("song_id", "song_1").Info("Saved song")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"song_id":"song_1"`)
	assert.Contains(t, string(data), `"msg":"Saved song"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestFatalClosesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songforge.log")

	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "text", File: path})
	require.NoError(t, err)

	logger.Fatal("Server stopped with error")
	assert.Equal(t, 1, code)
	assert.ErrorIs(t, closer.Close(), os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Server stopped with error")
}
