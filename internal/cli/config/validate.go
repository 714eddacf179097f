package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// OutputFormats lists the accepted values of the output setting.
var OutputFormats = []string{"auto", "text", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MacrosDir == "" {
		return fmt.Errorf("macros_dir is required")
	}

	if c.OutputFormat != "" && !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of %s)",
			c.OutputFormat, strings.Join(OutputFormats, ", "))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("invalid target configuration: %w", err)
		}
	}
	return nil
}

// ValidateDirectories checks that the macros directory exists.
// Only commands that read macros call it, so help output works anywhere.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.MacrosDir); os.IsNotExist(err) {
		return fmt.Errorf("macros directory does not exist: %s\nHint: Create the directory or use --macros-dir to specify a different path", c.MacrosDir)
	}
	return nil
}

// Level returns the effective log level; verbose forces debug.
func (c *Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// ParseLogLevel parses debug, info, warn or error. Empty means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level %q", s)
	}
}
