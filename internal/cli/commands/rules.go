package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// ruleUsage documents the built-in rules. Conditional variants (ifand,
// ifin, ...) take a leading condition and are described from their base.
var ruleUsage = map[string]string{
	"if":            "@{if, cond, fragment}  render fragment as dynamic SQL when cond is true",
	"text":          "@{text, fragment}  emit a fragment verbatim",
	"and":           "@{and, fragment}  append a condition joined by and, opening where",
	"or":            "@{or, fragment}  append a condition joined by or, opening where",
	"set":           "@{set, fragment}  append an assignment to an update set clause",
	"in":            "@{in, :list}  expand a collection into in (?, ?, ...)",
	"case":          "@{case, expr, branches}  emit the first matching when or else",
	"when":          "@{when, value, fragment}  branch of case",
	"else":          "@{else, fragment}  default branch of case",
	"macro":         "@{macro, name}  inline a named macro",
	"arg":           "#{expr, jdbcType=..., mode=...}  bind a value as a placeholder",
	"md5":           "@{md5, value}  bind the md5 hex digest of a value",
	"uuid32":        "@{uuid32}  bind a random uuid without dashes",
	"uuid36":        "@{uuid36}  bind a random uuid",
	"pairs":         "@{pairs, collection, body}  render body per entry with k, v and i bound",
	"result":        "@{result, mapping}  declare a result mapping (emits nothing)",
	"defaultresult": "@{defaultResult, mapping}  declare the default result mapping",
}

// RuleUsage returns the usage line for a rule name.
func RuleUsage(name string) string {
	lower := strings.ToLower(name)
	if u, ok := ruleUsage[lower]; ok {
		return u
	}
	if base, ok := strings.CutPrefix(lower, "if"); ok {
		if _, known := ruleUsage[base]; known {
			return "@{" + name + ", cond, ...}  " + base + " when cond is true"
		}
	}
	return ""
}

// RuleInfo describes one registered rule.
type RuleInfo struct {
	Name  string `json:"name"`
	Usage string `json:"usage,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in template rules",
		Long: `List every rule available inside @{...} and #{...} blocks with a short usage line.

Rules prefixed with "if" are conditional: they take a leading condition and
emit nothing when it is false.`,
		Example: `  # List rules
  dynsql rules

  # As JSON
  dynsql rules -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRules(cmd)
		},
	}
}

func listRules(cmd *cobra.Command) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer

	names := dynamic.DefaultRegistry().Names()
	infos := make([]RuleInfo, len(names))
	for i, name := range names {
		infos[i] = RuleInfo{Name: name, Usage: RuleUsage(name)}
	}

	if r.IsJSON() {
		return r.JSON(infos)
	}

	rows := make([][]any, len(infos))
	for i, info := range infos {
		rows[i] = []any{info.Name, info.Usage}
	}
	r.Table([]string{"Rule", "Usage"}, rows)
	return nil
}
