package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type ProjectConfig struct {
	Project   string      `yaml:"project"`
	Version   int         `yaml:"version"`
	Store     StoreConfig `yaml:"store"`
	Templates string      `yaml:"templates"`
	Debug     bool        `yaml:"debug"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	// DataDir holds the sqlite database for the sqlite backend.
	DataDir string `yaml:"data_dir"`
	// DSN is the postgres connection string for the postgres backend.
	DSN string `yaml:"dsn"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Store.Backend {
	case "", BackendSQLite:
		cfg.Store.Backend = BackendSQLite
		if cfg.Store.DataDir == "" {
			cfg.Store.DataDir = ".talecraft"
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("postgres backend requires a dsn")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	return nil
}

// WriteDefault writes a starter config for `talecraft init`.
func WriteDefault(path, project string) error {
	cfg := ProjectConfig{
		Project: project,
		Version: 1,
		Store:   StoreConfig{Backend: BackendSQLite, DataDir: ".talecraft"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
