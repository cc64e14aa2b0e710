// Package config holds the full metacog configuration: the subprocess
// dimension table, the pattern rule table, the intervention rule table,
// and the suppression knobs. Everything numeric the engines consume is
// data here, overridable from YAML and environment for experimentation
// without recompilation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"metacog/internal/intervention"
	"metacog/internal/pattern"
	"metacog/internal/scoring"
)

// Config is the root configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Scoring holds the feature-to-subprocess rescale table.
	Scoring ScoringConfig `yaml:"scoring"`

	// Patterns holds the classifier rule table and red-flag scheme.
	Patterns pattern.Config `yaml:"patterns"`

	// Interventions holds the intervention rule table.
	Interventions InterventionsConfig `yaml:"interventions"`

	// Suppression holds the fatigue-management knobs.
	Suppression intervention.TrackerConfig `yaml:"suppression"`

	// Store configures suppression persistence.
	Store StoreConfig `yaml:"store"`

	Logging LoggingConfig `yaml:"logging"`
}

// ScoringConfig configures the subprocess scorer.
type ScoringConfig struct {
	Dimensions []scoring.Dimension `yaml:"dimensions"`
}

// InterventionsConfig configures the rule engine.
type InterventionsConfig struct {
	Rules []intervention.Rule `yaml:"rules"`
}

// StoreConfig configures suppression persistence.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// DatabasePath is the SQLite file for the sqlite backend.
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "metacog",
		Version: "1.0.0",

		Scoring: ScoringConfig{
			Dimensions: scoring.DefaultDimensions(),
		},
		Patterns: pattern.DefaultConfig(),
		Interventions: InterventionsConfig{
			Rules: intervention.DefaultRules(),
		},
		Suppression: intervention.DefaultTrackerConfig(),
		Store: StoreConfig{
			Backend:      "sqlite",
			DatabasePath: "data/metacog.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides and validates
// the result. Rule tables are checked here once, not per evaluation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every table and knob once at load time.
func (c *Config) Validate() error {
	if err := scoring.ValidateDimensions(c.Scoring.Dimensions); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Patterns.Validate(); err != nil {
		return fmt.Errorf("patterns: %w", err)
	}
	if err := intervention.ValidateRules(c.Interventions.Rules); err != nil {
		return fmt.Errorf("interventions: %w", err)
	}
	if err := c.Suppression.Validate(); err != nil {
		return fmt.Errorf("suppression: %w", err)
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("store: database_path required for sqlite backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("METACOG_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("METACOG_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("METACOG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("METACOG_SUPPRESSION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Suppression.Window = d
		}
	}
	if v := os.Getenv("METACOG_DISMISSAL_THRESHOLD"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Suppression.DismissalThreshold = n
		}
	}
}
