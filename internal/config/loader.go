package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".recut"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for recut settings.
const envPrefix = "RECUT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// contractEnvBindings are the environment variables of the runtime contract,
// bound verbatim without the RECUT prefix.
var contractEnvBindings = map[string]string{
	"max_resident_memory_mib": "MAX_RESIDENT_MEMORY_MIB",
	"job_workers":             "JOB_WORKERS",
	"snapshot_dir":            "SNAPSHOT_DIR",
	"anchor_dir":              "ANCHOR_DIR",
	"secret_key":              "SECRET_KEY",
	"otlp.endpoint":           "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	for key, env := range contractEnvBindings {
		bindErr := viperCfg.BindEnv(key, env)
		if bindErr != nil {
			return nil, fmt.Errorf("bind %s: %w", env, bindErr)
		}
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("max_resident_memory_mib", DefaultMaxResidentMemoryMiB)
	viperCfg.SetDefault("job_workers", DefaultJobWorkers())
	viperCfg.SetDefault("snapshot_dir", DefaultSnapshotDir)
	viperCfg.SetDefault("anchor_dir", DefaultAnchorDir)
	viperCfg.SetDefault("secret_key", "")

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", false)

	viperCfg.SetDefault("metrics.addr", "")

	viperCfg.SetDefault("otlp.endpoint", "")
	viperCfg.SetDefault("otlp.insecure", false)

	viperCfg.SetDefault("checkpoint.enabled", true)
	viperCfg.SetDefault("checkpoint.dir", "")
	viperCfg.SetDefault("checkpoint.resume", true)
}
