// Package config provides configuration loading and structs for habitsim.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file settings.
const EnvPrefix = "HABITSIM"

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug" envconfig:"debug"`
	Server  ServerConfig  `yaml:"server" envconfig:"server"`
	Storage StorageConfig `yaml:"storage" envconfig:"storage"`
	Model   ModelConfig   `yaml:"model" envconfig:"model"`
	Search  SearchConfig  `yaml:"search" envconfig:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"host"`
	Port int    `yaml:"port" envconfig:"port"`
	// RateLimit is requests per second per client on the API routes; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" envconfig:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" envconfig:"rate_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the habit database path and the habit files the server keeps
// imported.
type StorageConfig struct {
	DatabasePath string   `yaml:"database_path" envconfig:"database_path"`
	ImportPaths  []string `yaml:"import_paths" envconfig:"import_paths"`
}

// ModelConfig holds TF-IDF model settings.
type ModelConfig struct {
	Path        string `yaml:"path" envconfig:"path"`
	DefaultTopN int    `yaml:"default_top_n" envconfig:"default_top_n"`
	CacheSize   int    `yaml:"cache_size" envconfig:"cache_size"`
	Watch       *bool  `yaml:"watch" envconfig:"watch"`
}

// WatchOrDefault returns whether the server reloads the model on file changes; defaults to true when unset.
func (m *ModelConfig) WatchOrDefault() bool {
	if m.Watch != nil {
		return *m.Watch
	}
	return true
}

// SearchConfig holds habit keyword search settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" envconfig:"default_limit"`
	MaxLimit     int `yaml:"max_limit" envconfig:"max_limit"`
	// Fusion weights for keyword and TF-IDF similarity scores.
	KeywordWeight  float64 `yaml:"keyword_weight" envconfig:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" envconfig:"semantic_weight"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	expandPaths(&cfg, configDir)

	return &cfg, nil
}

// LoadOrDefault loads the first config file in paths that exists. When none exists it
// returns defaults with environment overrides, relative paths resolved against the
// working directory. A file that exists but fails to parse is an error.
func LoadOrDefault(paths ...string) (*Config, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to stat config: %w", err)
		}
		cfg, err := Load(p)
		if err != nil {
			return nil, "", err
		}
		return cfg, p, nil
	}

	var cfg Config
	if err := ApplyEnv(&cfg); err != nil {
		return nil, "", err
	}
	ApplyDefaults(&cfg)
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	expandPaths(&cfg, cwd)
	return &cfg, "", nil
}

// ApplyEnv loads a .env file from the working directory when present, then overrides
// cfg from HABITSIM_* variables such as HABITSIM_MODEL_PATH or HABITSIM_SERVER_PORT.
// Variables already set in the environment win over .env entries.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPaths(cfg *Config, dir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, dir)
	for i, p := range cfg.Storage.ImportPaths {
		cfg.Storage.ImportPaths[i] = expandPath(p, dir)
	}
	cfg.Model.Path = expandPath(cfg.Model.Path, dir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
