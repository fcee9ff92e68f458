// Package config builds the runtime podds.PoddsConfig: defaults, then an
// optional YAML file, then PODDS_* environment variables (a .env file in the
// working directory is loaded first), then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"gopkg.in/yaml.v3"
)

// PathEnv names the config file when Load is given no path.
const PathEnv = "PODDS_CONFIG"

// Load returns the validated configuration. An empty path falls back to
// $PODDS_CONFIG; if that is empty too only defaults and environment apply.
func Load(path string) (*podds.PoddsConfig, error) {
	_ = godotenv.Load()

	cfg := podds.DefaultPoddsConfig()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := podds.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *podds.PoddsConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *podds.PoddsConfig) error {
	envStr("PODDS_DB_PATH", &cfg.PoddsDbPath)
	envStr("PODDS_TEAM_DATA", &cfg.TeamDataPath)
	envStr("PODDS_LOG_LEVEL", &cfg.LogLevel)
	envStr("PODDS_LOG_OUTPUT", &cfg.LogOutput)
	envStr("PODDS_LOG_PATH", &cfg.LogPath)
	envStr("PODDS_FIDELITY", &cfg.DefaultFidelity)

	return errors.Join(
		envBool("PODDS_LOG_DATETIME", &cfg.LogDateTime),
		envUint("PODDS_SEED", &cfg.Seed),
		envInt("PODDS_SIMULATIONS", &cfg.Simulations),
		envInt("PODDS_WORKERS", &cfg.Workers),
		envInt("PODDS_CACHE_SIZE", &cfg.CacheSize),
		envDuration("PODDS_CACHE_TTL", &cfg.CacheTTL),
		envDuration("PODDS_FIT_TIMEOUT", &cfg.FitTimeout),
		envFloat("PODDS_SHRINKAGE_K", &cfg.ShrinkageK),
	)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func envUint(key string, dst *uint64) error {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func envFloat(key string, dst *float64) error {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	return nil
}

func envBool(key string, dst *bool) error {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// ConfigureLogger applies the logging section of cfg.
func ConfigureLogger(cfg *podds.PoddsConfig) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetShowDateTime(cfg.LogDateTime)

	var output rune
	switch cfg.LogOutput {
	case "", "console":
		output = 'c'
	case "file":
		output = 'f'
	case "both":
		output = 'b'
	default:
		return fmt.Errorf("unknown log output %q (expected console, file or both)", cfg.LogOutput)
	}
	return logger.SetLogOutput(output, cfg.LogPath)
}
