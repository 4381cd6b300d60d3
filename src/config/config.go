// Package config loads the relaybot configuration file. All settings travel
// in an explicit struct passed into constructors; there is no ambient global
// state.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table declares one backed-up table. ConflictKey is the stable per-row
// identifier used for upserts during restore; it is always declared, never
// inferred.
type Table struct {
	Name        string `yaml:"name"`
	ConflictKey string `yaml:"conflict_key"`
	// Critical marks the table as part of the lightweight/emergency backup
	// subset.
	Critical bool `yaml:"critical"`
}

// Backup holds snapshot-store settings.
type Backup struct {
	// Dir is the snapshot directory.
	Dir string `yaml:"dir"`
	// Retention is how many full snapshots to keep; older ones are pruned
	// after each successful full backup.
	Retention int `yaml:"retention"`
}

// AI configures the generative-completion API.
type AI struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// Search configures the web-search API.
type Search struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Bot configures the chat-platform connection.
type Bot struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// PollSeconds is the long-poll timeout.
	PollSeconds int `yaml:"poll_seconds"`
}

// Config is the full application configuration.
type Config struct {
	DatabasePath string  `yaml:"database_path"`
	LogLevel     string  `yaml:"log_level"`
	HealthListen string  `yaml:"health_listen"`
	Backup       Backup  `yaml:"backup"`
	Tables       []Table `yaml:"tables"`
	AI           AI      `yaml:"ai"`
	Search       Search  `yaml:"search"`
	Bot          Bot     `yaml:"bot"`
}

// Load reads and validates the YAML config at path. Secrets may be supplied
// via RELAYBOT_BOT_TOKEN, RELAYBOT_AI_API_KEY, and RELAYBOT_SEARCH_API_KEY,
// which override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backup.Retention == 0 {
		cfg.Backup.Retention = 10
	}
	if cfg.Bot.PollSeconds == 0 {
		cfg.Bot.PollSeconds = 30
	}
	if cfg.HealthListen == "" {
		cfg.HealthListen = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RELAYBOT_BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("RELAYBOT_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("RELAYBOT_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
}

// Validate checks the settings the backup subsystem depends on.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("config: database_path is required")
	}
	if c.Backup.Dir == "" {
		return errors.New("config: backup.dir is required")
	}
	if c.Backup.Retention <= 0 {
		return errors.New("config: backup.retention must be > 0")
	}
	if len(c.Tables) == 0 {
		return errors.New("config: at least one table must be declared")
	}
	seen := map[string]bool{}
	for _, t := range c.Tables {
		if t.Name == "" {
			return errors.New("config: table with empty name")
		}
		if t.ConflictKey == "" {
			return fmt.Errorf("config: table %s: conflict_key is required", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("config: table %s declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// TableNames returns all declared table names, in declaration order.
func (c *Config) TableNames() []string {
	out := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		out[i] = t.Name
	}
	return out
}

// CriticalTableNames returns the priority subset, in declaration order.
func (c *Config) CriticalTableNames() []string {
	var out []string
	for _, t := range c.Tables {
		if t.Critical {
			out = append(out, t.Name)
		}
	}
	return out
}

// ConflictKeys maps each table to its declared conflict key.
func (c *Config) ConflictKeys() map[string]string {
	out := make(map[string]string, len(c.Tables))
	for _, t := range c.Tables {
		out[t.Name] = t.ConflictKey
	}
	return out
}
