// Package config loads recut configuration from file, environment, and
// defaults via viper. The five contract environment variables
// (MAX_RESIDENT_MEMORY_MIB, JOB_WORKERS, SNAPSHOT_DIR, ANCHOR_DIR,
// SECRET_KEY) are bound verbatim; everything else uses the RECUT prefix.
package config

import (
	"errors"
	"log/slog"
	"runtime"
)

// Defaults for the contract settings.
const (
	DefaultMaxResidentMemoryMiB = 3800
	DefaultSnapshotDir          = "./data/snapshots"
	DefaultAnchorDir            = "./data/version_metadata"
	DefaultLogLevel             = "info"
)

// DefaultJobWorkers is half the CPUs, at least one.
func DefaultJobWorkers() int {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}

	return workers
}

// Config is the top-level configuration struct for recut.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	MaxResidentMemoryMiB int    `mapstructure:"max_resident_memory_mib"`
	JobWorkers           int    `mapstructure:"job_workers"`
	SnapshotDir          string `mapstructure:"snapshot_dir"`
	AnchorDir            string `mapstructure:"anchor_dir"`
	SecretKey            string `mapstructure:"secret_key"`

	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	OTLP       OTLPConfig       `mapstructure:"otlp"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsConfig holds the optional debug listener settings.
type MetricsConfig struct {
	// Addr mounts /metrics, /healthz, /readyz when non-empty.
	Addr string `mapstructure:"addr"`
}

// OTLPConfig holds the OTLP exporter settings.
type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// CheckpointConfig holds stage-checkpoint settings.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Resume  bool   `mapstructure:"resume"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the job worker count is not positive.
	ErrInvalidWorkers = errors.New("job_workers must be positive")
	// ErrInvalidMemoryCeiling indicates the memory ceiling is not positive.
	ErrInvalidMemoryCeiling = errors.New("max_resident_memory_mib must be positive")
	// ErrMissingSnapshotDir indicates the snapshot directory is empty.
	ErrMissingSnapshotDir = errors.New("snapshot_dir must not be empty")
	// ErrMissingAnchorDir indicates the anchor directory is empty.
	ErrMissingAnchorDir = errors.New("anchor_dir must not be empty")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.JobWorkers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxResidentMemoryMiB <= 0 {
		return ErrInvalidMemoryCeiling
	}

	if c.SnapshotDir == "" {
		return ErrMissingSnapshotDir
	}

	if c.AnchorDir == "" {
		return ErrMissingAnchorDir
	}

	_, err := parseLogLevel(c.Log.Level)

	return err
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLogLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLogLevel
	}
}
