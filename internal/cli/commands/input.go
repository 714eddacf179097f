package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/dynsql/internal/engine"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// TemplateOptions selects the template a command renders and the
// parameters it is rendered with.
type TemplateOptions struct {
	Macro string
	Expr  string
	Set   []string
}

func addTemplateFlags(cmd *cobra.Command, opts *TemplateOptions) {
	cmd.Flags().StringVarP(&opts.Macro, "macro", "m", "", "Render the named macro")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "Render an inline template")
	cmd.Flags().StringArrayVarP(&opts.Set, "set", "s", nil, "Set a parameter as key=value (value is parsed as YAML)")
}

// ParseSets turns key=value pairs into a parameter scope. Values are
// decoded as YAML so numbers, booleans, null and lists keep their type.
func ParseSets(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", s)
		}
		out[key] = parseValue(raw)
	}
	return out, nil
}

func parseValue(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// params loads the configured params file and overlays --set values.
func (c *CommandContext) params(sets []string) (map[string]any, error) {
	base, err := engine.LoadParams(c.Cfg.ParamsFile)
	if err != nil {
		return nil, err
	}
	override, err := ParseSets(sets)
	if err != nil {
		return nil, err
	}
	return engine.MergeParams(base, override), nil
}

// render builds the statement selected by opts and args: a macro, an
// inline template, a template file, or a template read from stdin.
func (c *CommandContext) render(cmd *cobra.Command, opts *TemplateOptions, args []string) (*engine.Statement, error) {
	sources := 0
	if opts.Macro != "" {
		sources++
	}
	if opts.Expr != "" {
		sources++
	}
	if len(args) > 0 {
		sources++
	}
	if sources > 1 {
		return nil, errors.New("give only one of --macro, --expr or a template file")
	}

	params, err := c.params(opts.Set)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.Macro != "":
		return c.Engine.RenderMacro(opts.Macro, params)
	case opts.Expr != "":
		return c.Engine.Render(opts.Expr, params)
	case len(args) > 0 && args[0] != "-":
		return c.Engine.RenderFile(args[0], params)
	}

	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read template from stdin: %w", err)
	}
	stmt, err := c.Engine.Render(string(src), params)
	if err != nil {
		return nil, err
	}
	stmt.Name = "stdin"
	return stmt, nil
}

// writeStatement prints SQL followed by its bound arguments as SQL comments.
func writeStatement(w io.Writer, stmt *engine.Statement) {
	_, _ = fmt.Fprintln(w, stmt.SQL)
	if len(stmt.Args) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "-- args:")
	for i, a := range stmt.Args {
		_, _ = fmt.Fprintf(w, "--   %d: %s\n", i+1, describeArg(a))
	}
}

func describeArg(a *dynamic.SQLArg) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %s", a.Expr, literal(a.Value))
	if a.JDBCType != types.Unknown {
		fmt.Fprintf(&b, " (%s)", a.JDBCType)
	}
	if a.Mode != dynamic.ModeIn {
		fmt.Fprintf(&b, " [%s]", a.Mode)
	}
	return b.String()
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
