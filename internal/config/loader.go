package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".opspulse"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("OPSPULSE_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("OPSPULSE_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Path: filepath.Join(home, ConfigDir, "opspulse.db"),
		},
		Primary: PrimaryConfig{
			Timeout: 5 * time.Second,
		},
		Objective: ObjectiveConfig{
			MonthlyTarget: 63000,
		},
		Ingest: IngestConfig{
			Topic:         "opspulse.correspondence",
			ConsumerGroup: "opspulse",
		},
		Gateway: GatewayConfig{
			Addr: ":8090",
		},
		Scheduler: SchedulerConfig{
			TickInterval:  60 * time.Second,
			ReconcileCron: "0 * * * *",
			SweepCron:     "30 2 * * *",
			LockPath:      filepath.Join(home, ConfigDir, "scheduler.lock"),
			MaxConcurrent: 2,
		},
		Agents: AgentsConfig{
			HistoryCapacity:  50,
			AOVFloor:         60,
			RevenueDropPct:   20,
			ProgressFloorPct: 50,
		},
	}
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If file doesn't exist, continue with defaults

	// Override with environment variables for each group
	envconfig.Process("OPSPULSE_STORE", &cfg.Store)
	envconfig.Process("OPSPULSE_PRIMARY", &cfg.Primary)
	envconfig.Process("OPSPULSE_OBJECTIVE", &cfg.Objective)
	envconfig.Process("OPSPULSE_ENTITY", &cfg.Entity)
	envconfig.Process("OPSPULSE_INGEST", &cfg.Ingest)
	envconfig.Process("OPSPULSE_GATEWAY", &cfg.Gateway)
	envconfig.Process("OPSPULSE_SCHEDULER", &cfg.Scheduler)
	envconfig.Process("OPSPULSE_NOTIFY", &cfg.Notify)
	envconfig.Process("OPSPULSE_AGENTS", &cfg.Agents)

	return cfg, nil
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
