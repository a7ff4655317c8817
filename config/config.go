// Package config loads run configuration from YAML files. Every field
// has a working default; a config file only overrides what it names.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file-level run configuration.
type Config struct {
	// Package is the path of the package JSON to operate on.
	Package string `yaml:"package"`
	// State selects the state to run; empty means the package's
	// first state.
	State string `yaml:"state"`

	MaxIterations int     `yaml:"max_iterations"`
	MaxMatches    int     `yaml:"max_matches"`
	Tolerance     float64 `yaml:"tolerance"`
	RequireAll    bool    `yaml:"require_all"`
	Strict        bool    `yaml:"strict"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// EventLog is the JSONL path for the run's event stream; empty
	// disables recording.
	EventLog string `yaml:"event_log"`
	// Database is the SQLite path for run persistence; empty
	// disables it.
	Database string `yaml:"database"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxIterations: 1000,
		MaxMatches:    1000,
		Tolerance:     1e-6,
		LogLevel:      "info",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative, got %d", c.MaxIterations)
	}
	if c.MaxMatches < 0 {
		return fmt.Errorf("max_matches must be non-negative, got %d", c.MaxMatches)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %g", c.Tolerance)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
