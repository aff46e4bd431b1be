package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgfit/internal/fit"
)

func TestDefaultMatchesFitLimits(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ParseAndValidate())

	assert.Equal(t, fit.DefaultLimits(), cfg.FitLimits())
	assert.Equal(t, int64(512000), cfg.MaxFileSizeBytes)
	assert.Equal(t, runtime.NumCPU(), cfg.WorkerCount())
	assert.Equal(t, 300*time.Millisecond, cfg.RetryBaseDelay)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgfit.toml")
	content := `
[limits]
max_file_size = "200KiB"
max_longest_side = 800

[processing]
workers = 3
skip_existing = true

[s3]
endpoint = "https://acct.r2.cloudflarestorage.com"
path_style = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ParseAndValidate())

	assert.Equal(t, int64(200*1024), cfg.MaxFileSizeBytes)
	assert.Equal(t, 800, cfg.Limits.MaxLongestSide)
	// untouched keys keep their defaults
	assert.Equal(t, 95, cfg.Limits.InitialQuality)
	assert.Equal(t, 0.8, cfg.Limits.QualityDecay)
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.True(t, cfg.Processing.SkipExisting)
	assert.True(t, cfg.StorageS3().PathStyle)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.StorageS3().Endpoint)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgfit.yaml")
	content := `
limits:
  max_file_size: "1MB"
  min_quality: 20
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.ParseAndValidate())

	assert.Equal(t, int64(1000000), cfg.MaxFileSizeBytes)
	assert.Equal(t, 20, cfg.FitLimits().MinQuality)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1024, cfg.Limits.MaxLongestSide)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"IMGFIT_MAX_FILE_SIZE":    "300KB",
		"IMGFIT_MAX_LONGEST_SIDE": "640",
		"IMGFIT_QUALITY_DECAY":    "0.5",
		"IMGFIT_WORKERS":          "2",
		"IMGFIT_SKIP_EXISTING":    "true",
		"IMGFIT_LOG_LEVEL":        "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	require.NoError(t, cfg.ParseAndValidate())

	assert.Equal(t, int64(300000), cfg.MaxFileSizeBytes)
	assert.Equal(t, 640, cfg.Limits.MaxLongestSide)
	assert.Equal(t, 0.5, cfg.FitLimits().Decay)
	assert.Equal(t, 2, cfg.WorkerCount())
	assert.True(t, cfg.Processing.SkipExisting)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "IMGFIT_MAX_ATTEMPTS" {
			return "many"
		}
		return ""
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMGFIT_MAX_ATTEMPTS")
}

func TestParseAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad size", func(c *Config) { c.Limits.MaxFileSize = "lots" }, "invalid max_file_size"},
		{"zero size", func(c *Config) { c.Limits.MaxFileSize = "0" }, "must be positive"},
		{"zero side", func(c *Config) { c.Limits.MaxLongestSide = 0 }, "MaxLongestSide"},
		{"min above initial", func(c *Config) { c.Limits.MinQuality = 96 }, "MinQuality"},
		{"decay of one", func(c *Config) { c.Limits.QualityDecay = 1 }, "QualityDecay"},
		{"no attempts", func(c *Config) { c.Limits.MaxAttempts = 0 }, "MaxAttempts"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"secret missing", func(c *Config) { c.S3.AccessKeyID = "AKIA" }, "SecretAccessKey"},
		{"bad delay", func(c *Config) { c.S3.RetryBaseDelay = "soon" }, "retry_base_delay"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.ParseAndValidate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
