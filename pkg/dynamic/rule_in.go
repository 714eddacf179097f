package dynamic

import (
	"reflect"
	"strconv"
	"strings"
)

// inRule expands a collection into "in (?, ?, ...)". Every element
// binds its own placeholder carrying the outer JDBC type and handler.
type inRule struct {
	name   string
	ifMode bool
}

func (r *inRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *inRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	expr := ruleExpr(r.ifMode, activeExpr, ruleValue)

	arg, err := evalArgument(r.name, ctx, scope, expr)
	if err != nil {
		return err
	}
	value, outer := argValue(arg)

	elems, ok := collectionElements(value)
	if !ok {
		b.AppendSQL("in (?)", elementArg(outer, outer.Expr, value))
		return nil
	}
	if len(elems) == 0 {
		b.AppendSQL("in ()")
		return nil
	}

	placeholders := make([]string, len(elems))
	args := make([]*SQLArg, len(elems))
	for i, elem := range elems {
		placeholders[i] = "?"
		args[i] = elementArg(outer, outer.Expr+"["+strconv.Itoa(i)+"]", elem)
	}
	b.AppendSQL("in ("+strings.Join(placeholders, ", ")+")", args...)
	return nil
}

// elementArg binds value with the type metadata of outer.
func elementArg(outer *SQLArg, expr string, value any) *SQLArg {
	a := outer.withValue(expr, value)
	a.GoType = nil
	return a
}

// collectionElements returns the elements of a slice or array. Byte
// slices are scalars. A nil value is an empty collection.
func collectionElements(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}
