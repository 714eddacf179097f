package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/cli/output"
)

// InitResult is the JSON output of the init command.
type InitResult struct {
	Dir      string              `json:"dir"`
	Template string              `json:"template"`
	Files    map[string][]string `json:"files"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new dynsql project",
		Long: `Initialize a new dynsql project with a configuration file and a macros
directory.

Use --example to create a project with a users table, macros built from the
condition, set and case rules, a params file and a query file that uses them.`,
		Example: `  # Initialize in current directory
  dynsql init

  # Initialize a new directory with the example project
  dynsql init my-project --example

  # Overwrite existing files
  dynsql init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create the example project with macros, params and queries")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "dynsql.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	files, err := copyTemplate(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	groups := groupTemplateFiles(files)

	if r.IsJSON() {
		return r.JSON(InitResult{Dir: dir, Template: template, Files: groups})
	}

	for _, area := range []string{"config", "macros", "queries"} {
		if len(groups[area]) == 0 {
			continue
		}
		r.Printf("%s:\n", area)
		for _, f := range groups[area] {
			r.Printf("  created %s\n", f)
		}
	}

	r.Println()
	r.Println("dynsql project initialized. Next steps:")
	if template == "example" {
		r.Println("  dynsql exec --macro users.create      Create the users table")
		r.Println("  dynsql render queries/adults.sql      Render a query file")
		r.Println("  dynsql macros --check                 Check all macros")
	} else {
		r.Println("  Add macros to macros/ (.sql files or .yaml bundles)")
		r.Println("  dynsql render --expr 'select @{macro, columns} from t'")
	}
	return nil
}
