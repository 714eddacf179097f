// Package cli provides the command-line interface for dynsql.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/adapter"
	"github.com/leapstack-labs/dynsql/internal/cli/commands"
	"github.com/leapstack-labs/dynsql/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile    string
		targetFlag string
	)

	rootCmd := &cobra.Command{
		Use:   "dynsql",
		Short: "dynsql - Dynamic SQL rule engine",
		Long: `dynsql renders dynamic SQL templates into parameterized statements.

Templates mix plain SQL with rules such as @{and, ...}, @{in, ...} and
#{expr} placeholders. Expressions are evaluated with Starlark against the
template parameters; named fragments live in the macros directory.
Rendered statements can be printed, executed against a target database
or served over HTTP.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Info("using config file", "path", configFile)
				}
				if targetFlag != "" {
					logger.Info("using target", "target", targetFlag)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Dynamic SQL rule engine
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./dynsql.yaml)")
	pf.StringVarP(&targetFlag, "target", "t", "", "Target environment to use (e.g., dev, staging, prod)")
	pf.String("macros-dir", "", "Path to macros directory")
	pf.String("params", "", "YAML or JSON file with template parameters")
	pf.String("adapter", "", "Target database adapter (sqlite, duckdb, postgres, mysql)")
	pf.String("database", "", "Target database (file path for sqlite/duckdb)")
	pf.String("env", "", "Environment name")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("adapter", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewMacrosCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dynsql.

To load completions:

Bash:
  $ source <(dynsql completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ dynsql completion bash > /etc/bash_completion.d/dynsql
  # macOS:
  $ dynsql completion bash > $(brew --prefix)/etc/bash_completion.d/dynsql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ dynsql completion zsh > "${fpath[1]}/_dynsql"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ dynsql completion fish | source
  
  # To load completions for each session, execute once:
  $ dynsql completion fish > ~/.config/fish/completions/dynsql.fish

PowerShell:
  PS> dynsql completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> dynsql completion powershell > dynsql.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
