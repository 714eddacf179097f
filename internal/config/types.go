// Package config provides shared configuration types for dynsql.
// This package is decoupled from CLI concerns and can be used by the
// HTTP server and other tools that need to load project configuration.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/dynsql/internal/adapter"
	"github.com/leapstack-labs/dynsql/internal/engine"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres, mysql

	// File-based databases (SQLite, DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// ToAdapterConfig converts TargetConfig to the adapter connection config.
func (t *TargetConfig) ToAdapterConfig() *adapter.Config {
	return &adapter.Config{
		Type:     adapter.Canonical(t.Type),
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
	}
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	return nil
}

// EngineConfig tunes the rule engine.
type EngineConfig struct {
	// Cache enables the parsed template cache
	Cache bool `koanf:"cache"`
	// ThreadPool bounds idle Starlark threads
	ThreadPool int `koanf:"thread_pool"`
	// Concurrency bounds batch rendering workers
	Concurrency int `koanf:"concurrency"`
	// Globals are extra names visible to rule expressions
	Globals map[string]any `koanf:"globals"`
}

// ServerConfig holds configuration for the HTTP render server.
type ServerConfig struct {
	Addr        string        `koanf:"addr"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
	Watch       bool          `koanf:"watch"`
}

// ProjectConfig holds the project configuration shared by every entry point.
type ProjectConfig struct {
	MacrosDir   string        `koanf:"macros_dir"`
	Environment string        `koanf:"environment"`
	Target      *TargetConfig `koanf:"target"`
	Engine      *EngineConfig `koanf:"engine"`
	Server      *ServerConfig `koanf:"server"`
}

// EngineOptions builds the engine configuration for a project.
func (p *ProjectConfig) EngineOptions() engine.Config {
	cfg := engine.Config{
		MacrosDir:   p.MacrosDir,
		Environment: p.Environment,
	}
	if p.Target != nil {
		cfg.Target = p.Target.ToAdapterConfig()
	}
	if p.Engine != nil {
		cfg.Globals = p.Engine.Globals
		cfg.ThreadPool = p.Engine.ThreadPool
		cfg.DisableCache = !p.Engine.Cache
		cfg.Concurrency = p.Engine.Concurrency
	}
	return cfg
}
