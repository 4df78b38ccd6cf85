// Package config loads server configuration from defaults, an optional TOML
// file, and environment variables, in that priority order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything the serve command needs.
type Config struct {
	Listen     string           `toml:"listen"`
	Database   DatabaseConfig   `toml:"database"`
	Extraction ExtractionConfig `toml:"extraction"`
	Auth       AuthConfig       `toml:"auth"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ExtractionConfig struct {
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AuthConfig maps bearer tokens to owner identities.
type AuthConfig struct {
	Tokens map[string]string `toml:"tokens"`
}

// Timeout returns the extraction timeout as a duration.
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Load reads configuration. An explicit path must exist; with an empty path
// the default locations are tried and silently skipped when absent.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if found := findConfigFile(); found != "" {
		if _, err := toml.DecodeFile(found, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", found, err)
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Listen = "127.0.0.1:8080"
	cfg.Database.Path = defaultDatabasePath()
	cfg.Extraction.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	cfg.Extraction.TimeoutSeconds = 30
	cfg.Auth.Tokens = map[string]string{}
}

func defaultDatabasePath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "taskdeck.db"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "taskdeck", "taskdeck.db")
}

func findConfigFile() string {
	candidates := []string{"taskdeck.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "taskdeck", "taskdeck.toml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKDECK_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("TASKDECK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TASKDECK_EXTRACTION_ENDPOINT"); v != "" {
		cfg.Extraction.Endpoint = v
	}
	if v := os.Getenv("TASKDECK_EXTRACTION_API_KEY"); v != "" {
		cfg.Extraction.APIKey = v
	}
}
