// Package dynamic implements the dynamic SQL rule engine.
//
// A parsed template is walked node by node: literal text is copied,
// parameters become bound "?" placeholders and rule nodes such as
// @{and, name = :name} are dispatched to the Rule registered under
// their name. Rules may render their bodies as nested templates into
// the same SQLBuilder; nested bodies are parsed through a shared
// PlanCache.
package dynamic

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/dynsql/pkg/template"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// DefaultMaxDepth bounds nested template builds, e.g. recursive macros.
const DefaultMaxDepth = 64

// Config holds engine configuration.
type Config struct {
	// Evaluator evaluates rule expressions (PathEvaluator if nil; see pkg/starlark for full expressions)
	Evaluator Evaluator
	// Macros resolves @{macro, name} (no macros if nil)
	Macros MacroLookup
	// Types resolves javaType and typeHandler names (types.NewRegistry() if nil)
	Types *types.Registry
	// Rules is the base rule set (DefaultRegistry() if nil)
	Rules *Registry
	// Cache stores parsed nested templates (a new cache if nil)
	Cache *PlanCache
	// DisableCache parses nested templates on every use
	DisableCache bool
	// MaxDepth bounds template nesting (DefaultMaxDepth if zero)
	MaxDepth int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine builds SQL from dynamic templates.
// It is safe for concurrent use; each build owns its builder and scope.
type Engine struct {
	evaluator    Evaluator
	macros       MacroLookup
	types        *types.Registry
	rules        *Registry
	cache        *PlanCache
	disableCache bool
	maxDepth     int
	logger       *slog.Logger

	argConfigs sync.Map // config source -> *argConfig
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		evaluator:    cfg.Evaluator,
		macros:       cfg.Macros,
		types:        cfg.Types,
		rules:        cfg.Rules,
		cache:        cfg.Cache,
		disableCache: cfg.DisableCache,
		maxDepth:     cfg.MaxDepth,
		logger:       logger,
	}
	if e.evaluator == nil {
		e.evaluator = PathEvaluator{}
	}
	if e.macros == nil {
		e.macros = MacroMap(nil)
	}
	if e.types == nil {
		e.types = types.NewRegistry()
	}
	if e.rules == nil {
		e.rules = DefaultRegistry()
	}
	if e.cache == nil {
		e.cache = NewPlanCache(logger)
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}

	logger.Debug("initialized dynamic sql engine", "rules", e.rules.Len(), "cache", !e.disableCache)
	return e
}

// Rules returns the base rule registry.
func (e *Engine) Rules() *Registry { return e.rules }

// Cache returns the plan cache.
func (e *Engine) Cache() *PlanCache { return e.cache }

// Types returns the type registry.
func (e *Engine) Types() *types.Registry { return e.types }

// Parse parses src, through the plan cache unless caching is disabled.
func (e *Engine) Parse(src string) (*template.Template, error) {
	if e.disableCache {
		return template.Parse(src, "")
	}
	return e.cache.Get(src)
}

// BuildQuery renders tpl against scope. Rules are looked up in
// overrides first (may be nil), then in the engine's base registry.
// On failure no SQL is returned.
func (e *Engine) BuildQuery(tpl *template.Template, scope Scope, overrides *Registry) (string, []*SQLArg, error) {
	if scope == nil {
		scope = MapScope{}
	}

	ctx := &Context{engine: e, overrides: overrides, build: &buildState{}}
	b := NewSQLBuilder()
	if err := ctx.Build(tpl, scope, b); err != nil {
		return "", nil, err
	}

	e.logger.Debug("built query", "file", tpl.File, "args", len(b.Args()))
	return b.SQL(), b.Args(), nil
}

// Render parses src through the plan cache and builds it.
func (e *Engine) Render(src string, scope Scope, overrides *Registry) (string, []*SQLArg, error) {
	tpl, err := e.Parse(src)
	if err != nil {
		return "", nil, err
	}
	return e.BuildQuery(tpl, scope, overrides)
}

// buildState is shared by every Context of one BuildQuery call.
type buildState struct {
	nextCaseID int
}

// caseFrame is the bookkeeping of one active case rule. Frames form
// an immutable stack through parent; only matched changes.
type caseFrame struct {
	id          int
	matched     bool
	switchValue any
	hasSwitch   bool
	parent      *caseFrame
}

// Context carries per-build state through rule calls.
type Context struct {
	engine    *Engine
	overrides *Registry
	build     *buildState
	frame     *caseFrame
	depth     int
}

// Engine returns the engine running the build.
func (c *Context) Engine() *Engine { return c.engine }

// Macros returns the macro lookup.
func (c *Context) Macros() MacroLookup { return c.engine.macros }

// Types returns the type registry.
func (c *Context) Types() *types.Registry { return c.engine.types }

// Logger returns the engine logger.
func (c *Context) Logger() *slog.Logger { return c.engine.logger }

// Rule resolves a rule by name.
func (c *Context) Rule(name string) (Rule, error) {
	return lookupRule(c.overrides, c.engine.rules, name)
}

// Eval evaluates expr against scope. A blank expression yields nil.
func (c *Context) Eval(expr string, scope Scope) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	v, err := c.engine.evaluator.Eval(expr, scope)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return v, nil
}

// Test evaluates expr and reports its truthiness.
func (c *Context) Test(expr string, scope Scope) (bool, error) {
	v, err := c.Eval(expr, scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Parse parses src through the engine's plan cache.
func (c *Context) Parse(src string) (*template.Template, error) {
	return c.engine.Parse(src)
}

// BuildText renders src as a nested template into b.
func (c *Context) BuildText(src string, scope Scope, b *SQLBuilder) error {
	if src == "" {
		return nil
	}
	tpl, err := c.Parse(src)
	if err != nil {
		return err
	}
	return c.Build(tpl, scope, b)
}

// Fragment renders src into a fresh builder.
func (c *Context) Fragment(src string, scope Scope) (*SQLBuilder, *template.Template, error) {
	tpl, err := c.Parse(src)
	if err != nil {
		return nil, nil, err
	}
	fb := NewSQLBuilder()
	if err := c.Build(tpl, scope, fb); err != nil {
		return nil, nil, err
	}
	return fb, tpl, nil
}

// withFrame returns a context whose innermost case frame is f.
func (c *Context) withFrame(f *caseFrame) *Context {
	nc := *c
	nc.frame = f
	return &nc
}

// nextCaseID returns a case id unique within the build.
func (c *Context) nextCaseID() int {
	c.build.nextCaseID++
	return c.build.nextCaseID
}

// Build walks the nodes of tpl and writes their output into b.
func (c *Context) Build(tpl *template.Template, scope Scope, b *SQLBuilder) error {
	if c.depth >= c.engine.maxDepth {
		return fmt.Errorf("%w (%d)", ErrMaxDepth, c.engine.maxDepth)
	}
	nc := *c
	nc.depth++

	for _, n := range tpl.Nodes {
		switch node := n.(type) {
		case *template.TextNode:
			b.AppendSQL(node.Text)

		case *template.RuleNode:
			if err := nc.runRule(node.Name, node.Pos(), scope, b, node.ActiveExpr, node.Value); err != nil {
				return err
			}

		case *template.ParamNode:
			if err := nc.runRule("arg", node.Pos(), scope, b, node.Content, ""); err != nil {
				return err
			}

		case *template.PositionNode:
			name := "arg" + strconv.Itoa(node.Index)
			v, _ := scope.Get(name)
			if a, ok := v.(*SQLArg); ok && a != nil {
				b.AppendSQL("?", a)
			} else {
				b.AppendSQL("?", NewSQLArg(name, v))
			}

		case *template.InjectionNode:
			v, err := nc.Eval(node.Expr, scope)
			if err != nil {
				return wrapRuleError("${}", node.Pos(), err)
			}
			b.AppendSQL(injectionText(v))

		default:
			return fmt.Errorf("unsupported template node %T", n)
		}
	}
	return nil
}

// runRule resolves, tests and executes one rule.
func (c *Context) runRule(name string, pos template.Position, scope Scope, b *SQLBuilder, activeExpr, ruleValue string) error {
	rule, err := c.Rule(name)
	if err != nil {
		return wrapRuleError(name, pos, err)
	}

	ok, err := rule.Test(scope, c, activeExpr)
	if err != nil {
		return wrapRuleError(name, pos, err)
	}
	if !ok {
		return nil
	}

	if err := rule.Execute(scope, c, b, activeExpr, ruleValue); err != nil {
		return wrapRuleError(name, pos, err)
	}
	return nil
}

// injectionText formats a value spliced into SQL text.
func injectionText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *SQLArg:
		if x == nil {
			return ""
		}
		return injectionText(x.Value)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
