package dynamic

import (
	"strings"
)

// combineExpr joins activeExpr and ruleValue with a comma when both are present.
func combineExpr(activeExpr, ruleValue string) string {
	switch {
	case activeExpr != "" && ruleValue != "":
		return activeExpr + "," + ruleValue
	case activeExpr != "":
		return activeExpr
	default:
		return ruleValue
	}
}

// ruleExpr is the expression a rule operates on: ruleValue in if mode
// (activeExpr was the test), the combined expression otherwise.
func ruleExpr(ifMode bool, activeExpr, ruleValue string) string {
	if ifMode {
		return ruleValue
	}
	return combineExpr(activeExpr, ruleValue)
}

// testIf gates if-mode rules on the truthiness of activeExpr.
func testIf(ifMode bool, scope Scope, ctx *Context, activeExpr string) (bool, error) {
	if !ifMode {
		return true, nil
	}
	return ctx.Test(activeExpr, scope)
}

// evalArgument renders expr and returns the single argument it binds.
// Text that binds no placeholder is evaluated as an expression instead,
// so both @{md5, :name} and @{md5, name} work.
func evalArgument(rule string, ctx *Context, scope Scope, expr string) (*SQLArg, error) {
	if strings.TrimSpace(expr) == "" {
		return NewSQLArg("", nil), nil
	}

	fb, _, err := ctx.Fragment(expr, scope)
	if err != nil {
		return nil, err
	}

	switch fb.Groups() {
	case 0:
		text := strings.TrimSpace(fb.SQL())
		v, err := ctx.Eval(text, scope)
		if err != nil {
			return nil, err
		}
		if a, ok := v.(*SQLArg); ok && a != nil {
			return a, nil
		}
		return NewSQLArg(text, v), nil
	case 1:
		if args := fb.Args(); len(args) == 1 {
			return args[0], nil
		}
		return nil, &ArityError{Rule: rule, Want: 1, Got: len(fb.Args())}
	default:
		return nil, &ArityError{Rule: rule, Want: 1, Got: fb.Groups()}
	}
}

// argValue returns the raw value of a, unwrapping a pre-bound argument
// stored as a value.
func argValue(a *SQLArg) (any, *SQLArg) {
	if a == nil {
		return nil, nil
	}
	if inner, ok := a.Value.(*SQLArg); ok && inner != nil {
		return inner.Value, inner
	}
	return a.Value, a
}

// textRule implements text, iftext and if. Text rules emit their body
// verbatim; if renders it as nested dynamic SQL.
type textRule struct {
	name   string
	ifMode bool
	nested bool
}

func (r *textRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *textRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	body := ruleExpr(r.ifMode, activeExpr, ruleValue)
	if r.nested {
		return ctx.BuildText(body, scope, b)
	}
	b.AppendSQL(body)
	return nil
}

// resultRule marks stored-procedure result mappings. It never renders.
type resultRule struct{}

func (resultRule) Test(Scope, *Context, string) (bool, error) { return false, nil }

func (resultRule) Execute(Scope, *Context, *SQLBuilder, string, string) error { return nil }
