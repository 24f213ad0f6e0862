package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"layerd/internal/quota"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                  string `json:"addr" yaml:"addr" toml:"addr"`
	WeightsDir            string `json:"weights_dir" yaml:"weights_dir" toml:"weights_dir"`
	ArenaCapacityMB       int    `json:"arena_capacity_mb" yaml:"arena_capacity_mb" toml:"arena_capacity_mb"`
	KeepResidentLayers    int    `json:"keep_resident_layers" yaml:"keep_resident_layers" toml:"keep_resident_layers"`
	OnMemoryQuotaExceeded string `json:"on_memory_quota_exceeded" yaml:"on_memory_quota_exceeded" toml:"on_memory_quota_exceeded"`
	MonitorIntervalMS     int    `json:"monitor_interval_ms" yaml:"monitor_interval_ms" toml:"monitor_interval_ms"`
	LogLevel              string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate checks the constraints the core depends on. The capacity must be
// a positive number of megabytes, the residency window at least 1, and the
// escalation policy one of the known values.
func (c Config) Validate() error {
	if c.ArenaCapacityMB <= 0 {
		return fmt.Errorf("arena_capacity_mb must be positive, got %d", c.ArenaCapacityMB)
	}
	if c.KeepResidentLayers < 1 {
		return fmt.Errorf("keep_resident_layers must be >= 1, got %d", c.KeepResidentLayers)
	}
	if _, err := quota.ParsePolicy(c.OnMemoryQuotaExceeded); err != nil {
		return err
	}
	if c.MonitorIntervalMS < 0 {
		return fmt.Errorf("monitor_interval_ms must not be negative, got %d", c.MonitorIntervalMS)
	}
	return nil
}
