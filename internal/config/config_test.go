package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "explicit missing file is an error")

	cfg, err = LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxResidentMemoryMiB, cfg.MaxResidentMemoryMiB)
	assert.Equal(t, DefaultJobWorkers(), cfg.JobWorkers)
	assert.Equal(t, DefaultSnapshotDir, cfg.SnapshotDir)
	assert.Equal(t, DefaultAnchorDir, cfg.AnchorDir)
	assert.Empty(t, cfg.SecretKey)
	assert.True(t, cfg.Checkpoint.Enabled)
	assert.True(t, cfg.Checkpoint.Resume)
}

func TestLoadConfig_ContractEnvOverrides(t *testing.T) {
	t.Setenv("MAX_RESIDENT_MEMORY_MIB", "512")
	t.Setenv("JOB_WORKERS", "3")
	t.Setenv("SNAPSHOT_DIR", "/tmp/snaps")
	t.Setenv("SECRET_KEY", "hunter2")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.MaxResidentMemoryMiB)
	assert.Equal(t, 3, cfg.JobWorkers)
	assert.Equal(t, "/tmp/snaps", cfg.SnapshotDir)
	assert.Equal(t, "hunter2", cfg.SecretKey)
}

func TestLoadConfig_PrefixedEnvOverrides(t *testing.T) {
	t.Setenv("RECUT_LOG_LEVEL", "debug")
	t.Setenv("RECUT_LOG_JSON", "true")
	t.Setenv("RECUT_METRICS_ADDR", "127.0.0.1:9105")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "127.0.0.1:9105", cfg.Metrics.Addr)
	assert.Equal(t, "collector:4317", cfg.OTLP.Endpoint)
}

func TestLoadConfig_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recut.yaml")

	content := []byte("max_resident_memory_mib: 2048\njob_workers: 2\nlog:\n  level: warn\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.MaxResidentMemoryMiB)
	assert.Equal(t, 2, cfg.JobWorkers)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	t.Setenv("JOB_WORKERS", "0")

	_, err := LoadConfig("")
	require.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestValidate_Sentinels(t *testing.T) {
	t.Parallel()

	base := Config{
		MaxResidentMemoryMiB: DefaultMaxResidentMemoryMiB,
		JobWorkers:           1,
		SnapshotDir:          DefaultSnapshotDir,
		AnchorDir:            DefaultAnchorDir,
	}

	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero workers", func(c *Config) { c.JobWorkers = 0 }, ErrInvalidWorkers},
		{"negative ceiling", func(c *Config) { c.MaxResidentMemoryMiB = -1 }, ErrInvalidMemoryCeiling},
		{"empty snapshot dir", func(c *Config) { c.SnapshotDir = "" }, ErrMissingSnapshotDir},
		{"empty anchor dir", func(c *Config) { c.AnchorDir = "" }, ErrMissingAnchorDir},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tc.mutate(&cfg)

			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}
