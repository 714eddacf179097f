package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/dynsql/internal/adapter"
	intconfig "github.com/leapstack-labs/dynsql/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes environment variables; a double underscore
// separates nested keys (DYNSQL_TARGET__TYPE -> target.type).
const EnvPrefix = "DYNSQL_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names onto config keys where they differ.
// Flags mapped to "" never reach the config.
var flagKeys = map[string]string{
	"config":     "",
	"target":     "",
	"macros-dir": "macros_dir",
	"params":     "params_file",
	"log-level":  "log_level",
	"env":        "environment",
	"adapter":    "target.type",
	"database":   "target.database",
}

// findProjectRootUpward searches upward from startDir for a dynsql config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if intconfig.FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit config file
//  2. Search upward from CWD for dynsql.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// flagPath returns the absolute value of a path flag that was explicitly set.
// Paths given on the command line are relative to CWD, not the project root.
func flagPath(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil || !flags.Changed(name) {
		return ""
	}
	v, _ := flags.GetString(name)
	if v == "" {
		return ""
	}
	abs, err := filepath.Abs(v)
	if err != nil {
		return v
	}
	return abs
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional target override.
// The targetOverride parameter names the environment whose target is merged
// over the base target; empty uses the configured environment.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Look for a config file in the project root unless one was named
	projectRoot := inferProjectRoot(cfgFile)
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}

	// 1. Load defaults
	defaults := intconfig.DefaultValues()
	maps.Copy(defaults, map[string]any{
		"params_file": "",
		"verbose":     false,
		"log_level":   DefaultLogLevel,
		"output":      DefaultOutput,
	})
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (DYNSQL_ prefix)
	// Transform: DYNSQL_MACROS_DIR -> macros_dir, DYNSQL_TARGET__TYPE -> target.type
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, mapped := flagKeys[f.Name]
			if !mapped {
				// Transform kebab-case to snake_case for config keys
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := intconfig.Decode(k, &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the project root
	cfg.ProjectRoot = projectRoot
	if p := flagPath(flags, "macros-dir"); p != "" {
		cfg.MacrosDir = p
	} else {
		cfg.MacrosDir = resolvePathRelativeTo(cfg.MacrosDir, projectRoot)
	}
	if p := flagPath(flags, "params"); p != "" {
		cfg.ParamsFile = p
	} else {
		cfg.ParamsFile = resolvePathRelativeTo(cfg.ParamsFile, projectRoot)
	}

	// Determine which environment to use for target selection
	envForTarget := cfg.Environment
	if targetOverride != "" {
		envForTarget = targetOverride
	}

	// Apply environment-specific overrides if an environment is selected
	if envCfg, ok := cfg.Environments[envForTarget]; ok {
		if envCfg.MacrosDir != "" && targetOverride == "" {
			cfg.MacrosDir = resolvePathRelativeTo(envCfg.MacrosDir, projectRoot)
		}
		if envCfg.Target != nil {
			cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		}
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	expandTargetEnvVars(cfg.Target)
	intconfig.ApplyTargetDefaults(cfg.Target)
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	intconfig.ApplyServerDefaults(cfg.Server)
	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{Cache: true}
	}

	// File databases follow the same anchoring as other paths
	if isFileTarget(cfg.Target.Type) && cfg.Target.Database != ":memory:" {
		if p := flagPath(flags, "database"); p != "" {
			cfg.Target.Database = p
		} else {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

func isFileTarget(typ string) bool {
	switch adapter.Canonical(typ) {
	case "sqlite", "duckdb":
		return true
	}
	return false
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := &TargetConfig{
		Type:     base.Type,
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Options:  make(map[string]string, len(base.Options)+len(override.Options)),
	}
	maps.Copy(merged.Options, base.Options)

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	maps.Copy(merged.Options, override.Options)

	return merged
}
