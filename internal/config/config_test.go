package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Detector.Mode)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, float32(0.3), cfg.Gemini.Temperature)
	assert.Equal(t, 10, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, 32, cfg.Pipeline.MinCropSize)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StageTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
detector:
  mode: onnx
  model_path: /models/ewaste.onnx
pipeline:
  max_workers: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "onnx", cfg.Detector.Mode)
	assert.Equal(t, "/models/ewaste.onnx", cfg.Detector.ModelPath)
	assert.Equal(t, 4, cfg.Pipeline.MaxWorkers)
	// Untouched sections keep their defaults.
	assert.Equal(t, float32(0.25), cfg.Detector.ConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.Pipeline.IoUThreshold)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "detector: [not a mapping")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-key")
	t.Setenv("GEMINI_MAX_WORKERS", "3")
	t.Setenv("DETECTOR_URL", "http://detector:9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Gemini.APIKey)
	assert.Equal(t, 3, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, "http://detector:9000", cfg.Detector.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrideBadWorkerCountIgnored(t *testing.T) {
	t.Setenv("GEMINI_MAX_WORKERS", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Pipeline.MaxWorkers)
}
