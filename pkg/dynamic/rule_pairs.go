package dynamic

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// pairsRule renders its body once per entry of a map or list, with
// k, v and i bound in a child scope.
//
//	HSET key @{pairs, :fields, :k :v}
//
// An OrderedMap is walked in insertion order. Plain Go maps carry no
// order, so their entries are visited in sorted key order. List
// entries use their index as k.
type pairsRule struct{}

func (pairsRule) Test(Scope, *Context, string) (bool, error) { return true, nil }

func (pairsRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	arg, err := evalArgument("pairs", ctx, scope, activeExpr)
	if err != nil {
		return err
	}
	value, _ := argValue(arg)
	if value == nil {
		return nil
	}

	entries, err := pairEntries(value)
	if err != nil {
		return err
	}
	if ruleValue == "" {
		return nil
	}

	tpl, err := ctx.Parse(ruleValue)
	if err != nil {
		return err
	}

	for i, e := range entries {
		child := NewChildScope(scope, map[string]any{"k": e.key, "v": e.value, "i": i})
		fb := NewSQLBuilder()
		if err := ctx.Build(tpl, child, fb); err != nil {
			return err
		}
		if b.Len() > 0 && !b.LastSpaceCharacter() {
			b.AppendSQL(" ")
		}
		b.AppendBuilder(fb)
	}
	return nil
}

type pairEntry struct {
	key   any
	value any
}

func pairEntries(value any) ([]pairEntry, error) {
	if m, ok := value.(*OrderedMap); ok {
		keys := m.Keys()
		entries := make([]pairEntry, len(keys))
		for i, k := range keys {
			v, _ := m.Get(k)
			entries[i] = pairEntry{key: k, value: v}
		}
		return entries, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(a, b int) bool { return keyLess(keys[a], keys[b]) })
		entries := make([]pairEntry, len(keys))
		for i, k := range keys {
			entries[i] = pairEntry{key: k.Interface(), value: rv.MapIndex(k).Interface()}
		}
		return entries, nil

	case reflect.Slice, reflect.Array:
		if _, ok := value.([]byte); ok {
			break
		}
		entries := make([]pairEntry, rv.Len())
		for i := range entries {
			entries[i] = pairEntry{key: strconv.Itoa(i), value: rv.Index(i).Interface()}
		}
		return entries, nil
	}
	return nil, &ValueTypeError{Rule: "pairs", Value: value}
}

// keyLess orders map keys: numerically for integer keys, by string form otherwise.
func keyLess(a, b reflect.Value) bool {
	switch {
	case a.CanInt() && b.CanInt():
		return a.Int() < b.Int()
	case a.CanUint() && b.CanUint():
		return a.Uint() < b.Uint()
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return a.String() < b.String()
	}
	return fmt.Sprint(a.Interface()) < fmt.Sprint(b.Interface())
}
