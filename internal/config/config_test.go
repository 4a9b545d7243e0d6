package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, "ws://localhost:5000/ws", cfg.SignalingURL)
	assert.Equal(t, "http://localhost:8000/predict", cfg.AnalysisURL)
	assert.Len(t, cfg.STUNServers, 2)
	assert.Equal(t, ":8090", cfg.StatusAddr)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Equal(t, 15*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 640, cfg.CaptureWidth)
	assert.Equal(t, 480, cfg.CaptureHeight)
	assert.Equal(t, float32(30), cfg.CaptureFrameRate)
}

func TestLoadOverridesFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(`
mode: debug
signaling_url: ws://rooms.example.org/ws
retry_delay: 1s
capture_width: 1280
capture_height: 720
`), 0o644))
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, "ws://rooms.example.org/ws", cfg.SignalingURL)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 1280, cfg.CaptureWidth)
	assert.Equal(t, 720, cfg.CaptureHeight)
	// Untouched keys keep their defaults.
	assert.Equal(t, "http://localhost:8000/predict", cfg.AnalysisURL)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(`
signaling_url: "not a url"
`), 0o644))
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
