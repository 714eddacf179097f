package dynamic

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/leapstack-labs/dynsql/pkg/template"
)

// caseRule opens a case frame and tries its immediate when/else
// children in order until one matches.
//
//	@{case, status, @{when, 'A', ...} @{when, 'B', ...} @{else,, ...}}
//	@{case,, @{when, age > 18, ...} @{else,, ...}}
//
// With an activeExpr the case compares it against each when value;
// without one each when is tested for truthiness.
type caseRule struct{}

func (caseRule) Test(Scope, *Context, string) (bool, error) { return true, nil }

func (caseRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	frame := &caseFrame{id: ctx.nextCaseID(), parent: ctx.frame}
	if strings.TrimSpace(activeExpr) != "" {
		v, err := ctx.Eval(activeExpr, scope)
		if err != nil {
			return err
		}
		frame.switchValue = v
		frame.hasSwitch = true
	}

	if strings.TrimSpace(ruleValue) == "" {
		return nil
	}
	tpl, err := ctx.Parse(ruleValue)
	if err != nil {
		return err
	}

	inner := ctx.withFrame(frame)
	for _, n := range tpl.Nodes {
		node, ok := n.(*template.RuleNode)
		if !ok {
			continue
		}
		if name := strings.ToLower(node.Name); name != "when" && name != "else" {
			continue
		}
		if err := inner.runRule(node.Name, node.Pos(), scope, b, node.ActiveExpr, node.Value); err != nil {
			return err
		}
		if frame.matched {
			break
		}
	}

	ctx.Logger().Debug("case evaluated", "case_id", frame.id, "matched", frame.matched)
	return nil
}

// whenRule matches inside the innermost case frame.
type whenRule struct{}

func (whenRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	frame := ctx.frame
	if frame == nil {
		return false, &ScopeError{Rule: "when"}
	}
	if frame.matched {
		return false, nil
	}

	v, err := ctx.Eval(activeExpr, scope)
	if err != nil {
		return false, err
	}
	if frame.hasSwitch {
		return switchEquals(frame.switchValue, v), nil
	}
	return Truthy(v), nil
}

func (whenRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, _, ruleValue string) error {
	ctx.frame.matched = true
	return ctx.BuildText(ruleValue, scope, b)
}

// elseRule matches when no earlier when did. Its body is the value,
// or the activeExpr when written as @{else, body}.
type elseRule struct{}

func (elseRule) Test(_ Scope, ctx *Context, _ string) (bool, error) {
	if ctx.frame == nil {
		return false, &ScopeError{Rule: "else"}
	}
	return !ctx.frame.matched, nil
}

func (elseRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	ctx.frame.matched = true
	body := ruleValue
	if body == "" {
		body = activeExpr
	}
	return ctx.BuildText(body, scope, b)
}

// Equaler is implemented by values with their own equality.
type Equaler interface {
	Equal(other any) bool
}

// switchEquals compares a case switch value with a when value:
// identity, then value equality, then reverse value equality, then
// equality of string forms. Values of different types may match by
// their string forms. Pre-bound arguments compare by their values.
func switchEquals(switchValue, whenValue any) bool {
	switchValue, whenValue = unwrapArg(switchValue), unwrapArg(whenValue)
	if switchValue == nil || whenValue == nil {
		return switchValue == nil && whenValue == nil
	}
	if sameIdentity(switchValue, whenValue) {
		return true
	}
	if eq, ok := switchValue.(Equaler); ok && eq.Equal(whenValue) {
		return true
	}
	if eq, ok := whenValue.(Equaler); ok && eq.Equal(switchValue) {
		return true
	}
	if reflect.DeepEqual(switchValue, whenValue) {
		return true
	}
	return fmt.Sprint(switchValue) == fmt.Sprint(whenValue)
}

func sameIdentity(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	// Value.Comparable also rejects interface fields holding slices or maps.
	if ra.Comparable() {
		return a == b
	}
	return false
}

func unwrapArg(v any) any {
	if a, ok := v.(*SQLArg); ok {
		if a == nil {
			return nil
		}
		return a.Value
	}
	return v
}
