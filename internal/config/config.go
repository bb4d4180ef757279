// Package config loads and persists the analyst's settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for settings unless told otherwise.
const DefaultPath = "datanerd.yaml"

// Config holds everything tunable about a datanerd process.
type Config struct {
	// Model settings. APIKey is overridden by GEMINI_API_KEY when set, so
	// keys can stay out of checked-in config files.
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key,omitempty"`
	LLMAttempts int    `yaml:"llm_attempts"`

	// Execution limits.
	TimeoutSeconds int   `yaml:"timeout_seconds"`
	CellBudget     int64 `yaml:"cell_budget"`
	MaxConcurrent  int64 `yaml:"max_concurrent"`

	// HistoryDB is the SQLite turn archive path; empty disables archiving.
	HistoryDB string `yaml:"history_db,omitempty"`

	Debug bool `yaml:"debug"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Model:          "gemini-2.0-flash",
		LLMAttempts:    2,
		TimeoutSeconds: 5,
		CellBudget:     1_000_000,
		MaxConcurrent:  4,
		HistoryDB:      "datanerd-history.db",
	}
}

// Load reads config from path, falling back to defaults when the file does
// not exist. GEMINI_API_KEY always wins over the file's api_key.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return cfg, cfg.validate()
}

// Save writes the config to path, creating parent directories as needed.
// The API key is never written when it came from the environment.
func (c *Config) Save(path string) error {
	out := *c
	if os.Getenv("GEMINI_API_KEY") != "" {
		out.APIKey = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Timeout returns the execution limit as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.CellBudget <= 0 {
		return fmt.Errorf("cell_budget must be positive, got %d", c.CellBudget)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.LLMAttempts < 1 {
		return fmt.Errorf("llm_attempts must be at least 1, got %d", c.LLMAttempts)
	}
	return nil
}
