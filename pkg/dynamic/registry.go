package dynamic

import (
	"sort"
	"strings"
	"sync"
)

// Rule is one named unit of dynamic SQL behavior. Test decides whether
// the rule contributes at all; Execute writes its output into b.
type Rule interface {
	Test(scope Scope, ctx *Context, activeExpr string) (bool, error)
	Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error
}

// Registry maps rule names to rules. Names are case-insensitive.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]registeredRule
}

type registeredRule struct {
	name string
	rule Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]registeredRule)}
}

// DefaultRegistry returns a new registry holding the built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("if", &textRule{name: "if", ifMode: true, nested: true})
	r.Register("text", &textRule{name: "text"})
	r.Register("iftext", &textRule{name: "iftext", ifMode: true})

	r.Register("and", newAndRule(false))
	r.Register("ifand", newAndRule(true))
	r.Register("or", newOrRule(false))
	r.Register("ifor", newOrRule(true))
	r.Register("set", newSetRule(false))
	r.Register("ifset", newSetRule(true))

	r.Register("in", &inRule{name: "in"})
	r.Register("ifin", &inRule{name: "ifin", ifMode: true})

	r.Register("case", caseRule{})
	r.Register("when", whenRule{})
	r.Register("else", elseRule{})

	r.Register("macro", &macroRule{name: "macro"})
	r.Register("ifmacro", &macroRule{name: "ifmacro", ifMode: true})

	r.Register("arg", argRule{})

	r.Register("md5", &md5Rule{name: "md5"})
	r.Register("ifmd5", &md5Rule{name: "ifmd5", ifMode: true})
	r.Register("uuid32", &uuidRule{name: "uuid32", compact: true})
	r.Register("ifuuid32", &uuidRule{name: "ifuuid32", compact: true, ifMode: true})
	r.Register("uuid36", &uuidRule{name: "uuid36"})
	r.Register("ifuuid36", &uuidRule{name: "ifuuid36", ifMode: true})

	r.Register("pairs", pairsRule{})

	r.Register("result", resultRule{})
	r.Register("defaultResult", resultRule{})

	return r
}

// Register adds or replaces the rule registered under name.
func (r *Registry) Register(name string, rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[strings.ToLower(name)] = registeredRule{name: name, rule: rule}
}

// Get returns the rule registered under name.
func (r *Registry) Get(name string) (Rule, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rr, ok := r.rules[strings.ToLower(name)]
	return rr.rule, ok
}

// Names returns the registered rule names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for _, rr := range r.rules {
		names = append(names, rr.name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// lookupRule resolves name in overrides first, then in base.
func lookupRule(overrides, base *Registry, name string) (Rule, error) {
	if rule, ok := overrides.Get(name); ok {
		return rule, nil
	}
	if rule, ok := base.Get(name); ok {
		return rule, nil
	}
	return nil, &MissingRuleError{Name: name}
}
