// Package config provides configuration management for the dynsql CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields: output mode, logging, params files and
// per-environment target overrides. The shared types are re-exported
// here via type aliases for convenience.
package config

import (
	intconfig "github.com/leapstack-labs/dynsql/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = intconfig.TargetConfig

// EngineConfig is an alias for the shared engine configuration.
type EngineConfig = intconfig.EngineConfig

// ServerConfig is an alias for the shared server configuration.
type ServerConfig = intconfig.ServerConfig

// Config holds all CLI configuration options.
type Config struct {
	MacrosDir    string               `koanf:"macros_dir"`
	ParamsFile   string               `koanf:"params_file"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Engine       *EngineConfig        `koanf:"engine"`
	Server       *ServerConfig        `koanf:"server"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot anchors relative paths; it is inferred, never read from a file
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	MacrosDir string        `koanf:"macros_dir"`
	Target    *TargetConfig `koanf:"target"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultMacrosDir = intconfig.DefaultMacrosDir
	DefaultEnv       = intconfig.DefaultEnv
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=json
	DefaultLogLevel  = "warn"
)

// Project returns the shared project view of the CLI configuration.
func (c *Config) Project() *intconfig.ProjectConfig {
	p := &intconfig.ProjectConfig{
		MacrosDir:   c.MacrosDir,
		Environment: c.Environment,
		Target:      c.Target,
		Engine:      c.Engine,
		Server:      c.Server,
	}
	intconfig.ApplyDefaults(p)
	return p
}
