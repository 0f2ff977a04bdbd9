// Package config loads the YAML configuration and keeps the log level in
// sync with the file at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all voxtask configuration.
type Config struct {
	Name string `yaml:"name"`

	// Oracle configures the plan/phrasing LLM.
	Oracle OracleConfig `yaml:"oracle"`

	// Dialogue bounds the clarification loop.
	Dialogue DialogueConfig `yaml:"dialogue"`

	// Workers configures the built-in capability handlers.
	Workers WorkersConfig `yaml:"workers"`

	// Logging configures the zap logger.
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the Gemini client. An empty APIKey selects the
// offline canned planner.
type OracleConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// DialogueConfig bounds the multi-turn recovery loop.
type DialogueConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// WorkersConfig configures the built-in handlers.
type WorkersConfig struct {
	// FileRoot confines the file capability. Defaults to the user home.
	FileRoot string `yaml:"file_root"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Name: "voxtask",

		Oracle: OracleConfig{
			Model: "gemini-2.0-flash",
		},

		Dialogue: DialogueConfig{
			MaxRetries:     3,
			TimeoutSeconds: 60,
		},

		Workers: WorkersConfig{
			FileRoot: home,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if root := os.Getenv("VOXTASK_FILE_ROOT"); root != "" {
		c.Workers.FileRoot = root
	}
	if level := os.Getenv("VOXTASK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate reports configuration errors that would break startup.
func (c *Config) Validate() error {
	if c.Dialogue.MaxRetries < 1 {
		return fmt.Errorf("dialogue.max_retries must be at least 1, got %d", c.Dialogue.MaxRetries)
	}
	if c.Dialogue.TimeoutSeconds < 1 {
		return fmt.Errorf("dialogue.timeout_seconds must be at least 1, got %d", c.Dialogue.TimeoutSeconds)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
