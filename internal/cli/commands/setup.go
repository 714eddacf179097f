package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/cli/config"
	"github.com/leapstack-labs/dynsql/internal/cli/output"
	"github.com/leapstack-labs/dynsql/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only describe the rule set.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		MacrosDir:    getEnvOrDefault("DYNSQL_MACROS_DIR", config.DefaultMacrosDir),
		ParamsFile:   os.Getenv("DYNSQL_PARAMS_FILE"),
		Environment:  getEnvOrDefault("DYNSQL_ENVIRONMENT", config.DefaultEnv),
		Verbose:      os.Getenv("DYNSQL_VERBOSE") == "true",
		OutputFormat: os.Getenv("DYNSQL_OUTPUT"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	engineCfg := cfg.Project().EngineOptions()
	engineCfg.Logger = logger
	return engine.New(engineCfg)
}
