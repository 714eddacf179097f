package dynamic

import "strings"

// macroRule renders a named fragment from the macro lookup.
//
//	@{macro, name}
//	@{ifmacro, test, name}
type macroRule struct {
	name   string
	ifMode bool
}

func (r *macroRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *macroRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	name := activeExpr
	if r.ifMode {
		name = ruleValue
	}
	name = strings.TrimSpace(name)

	body, ok := ctx.Macros().FindMacro(name)
	if !ok {
		return &MacroNotFoundError{Name: name}
	}
	return ctx.BuildText(body, scope, b)
}
