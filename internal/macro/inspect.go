package macro

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/dynsql/pkg/template"
)

// Info is the static description of a macro body. It is computed from the
// segment tree only; nothing is evaluated.
type Info struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Rules     []string `json:"rules"`     // rule names used, sorted
	Params    []string `json:"params"`    // bound parameter expressions in order of appearance
	Macros    []string `json:"macros"`    // macros referenced by macro/ifmacro, sorted
	Injection bool     `json:"injection"` // body splices ${} values
}

// fragmentRules take a dynamic SQL fragment (not an expression) as their
// first argument.
var fragmentRules = map[string]bool{
	"and": true, "or": true, "set": true, "in": true, "text": true,
}

// Inspect parses the macro body and collects the rules, parameters and
// macro references it uses, descending into nested rule bodies.
func Inspect(m *Macro) (*Info, error) {
	info := &Info{Name: m.Name, Path: m.Path}
	c := &collector{
		info:   info,
		rules:  make(map[string]bool),
		params: make(map[string]bool),
		macros: make(map[string]bool),
	}
	if err := c.walk(m.Body, m.Path); err != nil {
		return nil, err
	}

	info.Rules = sortedKeys(c.rules)
	info.Macros = sortedKeys(c.macros)
	return info, nil
}

type collector struct {
	info   *Info
	rules  map[string]bool
	params map[string]bool
	macros map[string]bool
}

func (c *collector) walk(src, file string) error {
	tpl, err := template.Parse(src, file)
	if err != nil {
		return err
	}

	for _, node := range tpl.Nodes {
		switch n := node.(type) {
		case *template.RuleNode:
			if err := c.rule(n, file); err != nil {
				return err
			}
		case *template.ParamNode:
			name := strings.TrimSpace(strings.SplitN(n.Content, ",", 2)[0])
			c.param(name)
		case *template.InjectionNode:
			c.info.Injection = true
		}
	}
	return nil
}

func (c *collector) rule(n *template.RuleNode, file string) error {
	c.rules[n.Name] = true

	switch n.Name {
	case "macro":
		c.macros[strings.TrimSpace(n.ActiveExpr)] = true
		return nil
	case "ifmacro":
		c.macros[strings.TrimSpace(n.Value)] = true
		return nil
	}

	if fragmentRules[n.Name] && n.ActiveExpr != "" {
		if err := c.walk(n.ActiveExpr, file); err != nil {
			return err
		}
	}
	if n.Value != "" {
		return c.walk(n.Value, file)
	}
	return nil
}

func (c *collector) param(name string) {
	if name == "" || c.params[name] {
		return
	}
	c.params[name] = true
	c.info.Params = append(c.info.Params, name)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Unresolved returns the macro references in info that the registry
// cannot resolve.
func (r *Registry) Unresolved(info *Info) []string {
	var missing []string
	for _, name := range info.Macros {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
