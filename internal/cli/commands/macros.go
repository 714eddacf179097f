package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/macro"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// MacrosOptions holds options for the macros command.
type MacrosOptions struct {
	Check bool
}

// MacroDetail is the JSON form of one inspected macro.
type MacroDetail struct {
	*macro.Info
	Body       string   `json:"body,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
	UsedBy     []string `json:"used_by,omitempty"`
	Cycle      []string `json:"cycle,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func (d MacroDetail) problem() bool {
	return d.Error != "" || len(d.Unresolved) > 0 || len(d.Cycle) > 0
}

// NewMacrosCommand creates the macros command.
func NewMacrosCommand() *cobra.Command {
	opts := &MacrosOptions{}

	cmd := &cobra.Command{
		Use:   "macros [name]",
		Short: "List macros or show one macro",
		Long: `List the macros loaded from the macros directory with the rules, parameters
and macro references each one uses. With a name, show that macro's body.

Use --check to fail when a macro does not parse or references a macro that
does not exist, or when macros include each other in a cycle.`,
		Example: `  # List macros
  dynsql macros

  # Show one macro
  dynsql macros users.by_filter

  # Validate every macro (for CI)
  dynsql macros --check`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			reg, err := macro.Load(getConfig().MacrosDir)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return reg.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showMacro(cmd, args[0])
			}
			return listMacros(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "Exit with an error if any macro is invalid or unresolved")
	return cmd
}

// inspectAll inspects every macro and links the results through the
// reference graph. Every macro on the first cycle found carries that cycle.
func inspectAll(reg *macro.Registry) []MacroDetail {
	all := reg.All()
	details := make([]MacroDetail, len(all))
	infos := make([]*macro.Info, 0, len(all))
	for i, m := range all {
		info, err := macro.Inspect(m)
		if err != nil {
			details[i] = MacroDetail{Info: &macro.Info{Name: m.Name, Path: m.Path}, Error: err.Error()}
			continue
		}
		details[i] = MacroDetail{Info: info, Unresolved: reg.Unresolved(info)}
		infos = append(infos, info)
	}

	graph := macro.NewGraph(infos)
	cycle := graph.Cycle()
	for i := range details {
		details[i].UsedBy = graph.UsedBy(details[i].Name)
		if slices.Contains(cycle, details[i].Name) {
			details[i].Cycle = cycle
		}
	}
	return details
}

func listMacros(cmd *cobra.Command, opts *MacrosOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	details := inspectAll(cmdCtx.Engine.Macros())

	var problems int
	for _, d := range details {
		if d.problem() {
			problems++
		}
	}

	if r.IsJSON() {
		if err := r.JSON(details); err != nil {
			return err
		}
	} else {
		rows := make([][]any, len(details))
		for i, d := range details {
			status := "ok"
			switch {
			case d.Error != "":
				status = d.Error
			case len(d.Unresolved) > 0:
				status = "missing " + strings.Join(d.Unresolved, ", ")
			case len(d.Cycle) > 0:
				status = "cycle " + strings.Join(d.Cycle, " -> ")
			}
			rows[i] = []any{d.Name, strings.Join(d.Params, ", "), strings.Join(d.Rules, ", "), status}
		}
		r.Table([]string{"Macro", "Params", "Rules", "Status"}, rows)
	}

	if opts.Check && problems > 0 {
		return fmt.Errorf("%d of %d macros have problems", problems, len(details))
	}
	return nil
}

func showMacro(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := cmdCtx.Engine.Macros()
	m, ok := reg.Get(name)
	if !ok {
		return &dynamic.MacroNotFoundError{Name: name}
	}

	var detail MacroDetail
	for _, d := range inspectAll(reg) {
		if d.Name == name {
			detail = d
		}
	}
	if detail.Error != "" {
		return fmt.Errorf("macro %s: %s", name, detail.Error)
	}
	detail.Body = m.Body
	info := detail.Info

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(detail)
	}

	r.Printf("-- %s (%s)\n", info.Name, info.Path)
	if len(info.Params) > 0 {
		r.Printf("-- params: %s\n", strings.Join(info.Params, ", "))
	}
	if len(info.Macros) > 0 {
		r.Printf("-- uses: %s\n", strings.Join(info.Macros, ", "))
	}
	if len(detail.UsedBy) > 0 {
		r.Printf("-- used by: %s\n", strings.Join(detail.UsedBy, ", "))
	}
	if len(detail.Cycle) > 0 {
		r.Warnf("warning: %s is part of a macro cycle: %s", name, strings.Join(detail.Cycle, " -> "))
	}
	if len(detail.Unresolved) > 0 {
		r.Warnf("warning: %s references missing macros: %s", name, strings.Join(detail.Unresolved, ", "))
	}
	r.Println(m.Body)
	return nil
}
