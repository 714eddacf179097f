package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/cli/output"
	"github.com/leapstack-labs/dynsql/internal/engine"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	TemplateOptions
	Query  bool
	DryRun bool
}

// queryKeywords start statements that return rows.
var queryKeywords = []string{"select", "with", "show", "pragma", "explain", "values", "describe", "table"}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Render a template and execute it against the target database",
		Long: `Render a dynamic SQL template and execute it on the configured target.

Statements that return rows (select, with, show, ...) are run as queries
and their rows printed; anything else is executed and the affected row count
reported. Use --query to force query mode.`,
		Example: `  # Run a macro against the default target
  dynsql exec -m users.find -s name=ann

  # Run against the prod environment
  dynsql exec queries/cleanup.sql --target prod

  # Print rows as JSON
  dynsql exec -e "select * from users @{and,age >= :age}" -s age=30 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args)
		},
	}

	addTemplateFlags(cmd, &opts.TemplateOptions)
	cmd.Flags().BoolVarP(&opts.Query, "query", "q", false, "Treat the statement as a query that returns rows")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Render only, do not execute")
	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stmt, err := cmdCtx.render(cmd, &opts.TemplateOptions, args)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if opts.DryRun {
		writeStatement(r.Writer(), stmt)
		return nil
	}

	if opts.Query || returnsRows(stmt.SQL) {
		return runQuery(cmd.Context(), cmdCtx.Engine, r, stmt)
	}
	return runStatement(cmd.Context(), cmdCtx.Engine, r, stmt)
}

// returnsRows reports whether the statement's leading keyword produces rows.
func returnsRows(sql string) bool {
	fields := strings.Fields(strings.TrimLeft(sql, "( \t\r\n"))
	if len(fields) == 0 {
		return false
	}
	return slices.Contains(queryKeywords, strings.ToLower(fields[0]))
}

// QueryResult is the JSON form of a query's rows.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ExecResult is the JSON form of an executed statement.
type ExecResult struct {
	RowsAffected int64          `json:"rows_affected"`
	LastInsertID int64          `json:"last_insert_id,omitempty"`
	Out          map[string]any `json:"out,omitempty"`
}

func runQuery(ctx context.Context, eng *engine.Engine, r *output.Renderer, stmt *engine.Statement) error {
	rows, err := eng.Query(ctx, stmt)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	columns, data, err := rows.Collect()
	if err != nil {
		return err
	}

	if r.IsJSON() {
		if data == nil {
			data = [][]any{}
		}
		return r.JSON(QueryResult{Columns: columns, Rows: data})
	}

	for _, row := range data {
		for i, v := range row {
			row[i] = output.FormatValue(v)
		}
	}
	r.Table(columns, data)
	r.Printf("(%d rows)\n", len(data))
	return nil
}

func runStatement(ctx context.Context, eng *engine.Engine, r *output.Renderer, stmt *engine.Statement) error {
	res, err := eng.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}

	if r.IsJSON() {
		return r.JSON(ExecResult{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID, Out: res.Out})
	}

	r.Printf("%d rows affected\n", res.RowsAffected)
	for _, name := range slices.Sorted(maps.Keys(res.Out)) {
		r.Printf("  %s = %s\n", name, output.FormatValue(res.Out[name]))
	}
	return nil
}
