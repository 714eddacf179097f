package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/server"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &TemplateOptions{}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a dynamic SQL template",
		Long: `Render a dynamic SQL template into SQL text and its bound arguments.

The template comes from a file, an inline --expr, a named --macro, or stdin
when neither is given (or the file is "-"). Parameters are read from the
configured params file and overridden with --set.

Output adapts to environment:
  - Terminal: SQL followed by the arguments as comments
  - Piped/Scripted: JSON with sql and args`,
		Example: `  # Render a template file
  dynsql render queries/find_users.sql --set min_age=18

  # Render a macro with a params file
  dynsql render --macro users.by_filter --params params.yaml

  # Render inline
  dynsql render -e "select * from t @{and,id @{in,:ids}}" --set 'ids=[1,2]'

  # Render as JSON
  dynsql render -m users.by_id -s id=7 --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args)
		},
	}

	addTemplateFlags(cmd, opts)
	return cmd
}

func runRender(cmd *cobra.Command, opts *TemplateOptions, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stmt, err := cmdCtx.render(cmd, opts, args)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(server.NewRenderResponse(stmt))
	}
	writeStatement(r.Writer(), stmt)
	return nil
}
