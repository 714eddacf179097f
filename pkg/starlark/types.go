// Package starlark provides a Starlark-backed expression evaluator for
// dynamic SQL rules, together with the value conversions and globals it uses.
package starlark

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// TargetInfo contains database target information.
// Exposed as the "target" global in rule expressions.
type TargetInfo struct {
	Type     string // "sqlite", "postgres", "duckdb", "mysql"
	Database string // Database name or DSN path
}

// ToStarlark converts TargetInfo to a Starlark struct value.
func (t *TargetInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
		"type":     starlark.String(t.Type),
		"database": starlark.String(t.Database),
	})
}

// GoToStarlark converts a Go value to a Starlark value.
// String-keyed maps become records (dicts with attribute access), slices
// and arrays become lists, structs and other opaque values are wrapped so
// they convert back to the same Go value. A *dynamic.SQLArg converts as
// its Value.
func GoToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil

	case starlark.Value:
		return val, nil

	case *dynamic.SQLArg:
		if val == nil {
			return starlark.None, nil
		}
		return GoToStarlark(val.Value)

	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []byte:
		return starlark.Bytes(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case *dynamic.OrderedMap:
		if val == nil {
			return starlark.None, nil
		}
		r := newRecord(val.Len())
		for _, k := range val.Keys() {
			item, _ := val.Get(k)
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := r.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return r, nil

	case map[string]any:
		r := newRecord(len(val))
		for k, v := range val {
			sv, err := GoToStarlark(v)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := r.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return r, nil
	}

	return reflectToStarlark(reflect.ValueOf(v))
}

func reflectToStarlark(rv reflect.Value) (starlark.Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float()), nil

	case reflect.String:
		return starlark.String(rv.String()), nil

	case reflect.Bool:
		return starlark.Bool(rv.Bool()), nil

	case reflect.Array:
		// fixed byte arrays (uuid.UUID and friends) stay opaque
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &goValue{v: rv.Interface()}, nil
		}
		return listFromReflect(rv)

	case reflect.Slice:
		return listFromReflect(rv)

	case reflect.Map:
		return mapFromReflect(rv)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return starlark.None, nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return &goValue{v: rv.Interface()}, nil
		}
		return GoToStarlark(rv.Elem().Interface())
	}

	if !rv.IsValid() {
		return starlark.None, nil
	}
	return &goValue{v: rv.Interface()}, nil
}

func listFromReflect(rv reflect.Value) (starlark.Value, error) {
	list := make([]starlark.Value, rv.Len())
	for i := range list {
		sv, err := GoToStarlark(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("list index %d: %w", i, err)
		}
		list[i] = sv
	}
	return starlark.NewList(list), nil
}

func mapFromReflect(rv reflect.Value) (starlark.Value, error) {
	var d *starlark.Dict
	var r *record
	if rv.Type().Key().Kind() == reflect.String {
		r = newRecord(rv.Len())
		d = r.Dict
	} else {
		d = starlark.NewDict(rv.Len())
	}

	iter := rv.MapRange()
	for iter.Next() {
		k, err := GoToStarlark(iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("dict key %v: %w", iter.Key(), err)
		}
		v, err := GoToStarlark(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("dict key %v: %w", iter.Key(), err)
		}
		if err := d.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("dict setkey %v: %w", iter.Key(), err)
		}
	}

	if r != nil {
		return r, nil
	}
	return d, nil
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []byte, []any,
// *dynamic.OrderedMap for dicts (keys in insertion order), the wrapped
// Go value of opaque values, or nil.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Bytes:
		return []byte(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *goValue:
		return val.v, nil

	case *record:
		return dictToGo(val.Dict)

	case *starlark.Dict:
		return dictToGo(val)

	case starlark.Indexable: // list, tuple
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Set:
		result := make([]any, 0, val.Len())
		iter := val.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			gv, err := ToGo(item)
			if err != nil {
				return nil, err
			}
			result = append(result, gv)
		}
		return result, nil

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}

func dictToGo(d *starlark.Dict) (any, error) {
	result := dynamic.NewOrderedMap(d.Len())
	for _, item := range d.Items() {
		key, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
		}
		gv, err := ToGo(item[1])
		if err != nil {
			return nil, fmt.Errorf("dict key %q: %w", key, err)
		}
		result.Set(string(key), gv)
	}
	return result, nil
}

// record is a dict whose string keys can also be read as attributes,
// so user.name and user["name"] are the same lookup. Missing keys read
// as None.
type record struct {
	*starlark.Dict
}

var _ starlark.HasAttrs = (*record)(nil)

func newRecord(size int) *record {
	return &record{Dict: starlark.NewDict(size)}
}

func (r *record) Attr(name string) (starlark.Value, error) {
	if v, found, err := r.Get(starlark.String(name)); err != nil || found {
		return v, err
	}
	if v, err := r.Dict.Attr(name); err != nil || v != nil {
		return v, err
	}
	return starlark.None, nil
}

func (r *record) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	return r.Dict.CompareSameType(op, y.(*record).Dict, depth)
}

func (r *record) AttrNames() []string {
	names := r.Dict.AttrNames()
	for _, k := range r.Keys() {
		if s, ok := k.(starlark.String); ok {
			names = append(names, string(s))
		}
	}
	sort.Strings(names)
	return names
}

// goValue wraps a Go value that has no native Starlark form. Struct
// fields are readable as attributes, matched case-insensitively.
type goValue struct {
	v any
}

var _ starlark.HasAttrs = (*goValue)(nil)

func (g *goValue) String() string        { return fmt.Sprint(g.v) }
func (g *goValue) Type() string          { return "go." + reflect.TypeOf(g.v).String() }
func (g *goValue) Freeze()               {}
func (g *goValue) Truth() starlark.Bool  { return starlark.Bool(dynamic.Truthy(g.v)) }
func (g *goValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", g.Type()) }

func (g *goValue) Attr(name string) (starlark.Value, error) {
	rv := structValue(g.v)
	if !rv.IsValid() {
		return nil, nil
	}
	f := rv.FieldByNameFunc(func(field string) bool { return strings.EqualFold(field, name) })
	if !f.IsValid() || !f.CanInterface() {
		return starlark.None, nil
	}
	return GoToStarlark(f.Interface())
}

func (g *goValue) AttrNames() []string {
	rv := structValue(g.v)
	if !rv.IsValid() {
		return nil
	}
	var names []string
	for _, f := range reflect.VisibleFields(rv.Type()) {
		if f.IsExported() && !f.Anonymous {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// CompareSameType lets == and != compare wrapped values.
func (g *goValue) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	eq := reflect.DeepEqual(g.v, y.(*goValue).v)
	switch op {
	case syntax.EQL:
		return eq, nil
	case syntax.NEQ:
		return !eq, nil
	}
	return false, fmt.Errorf("%s %s %s not implemented", g.Type(), op, y.Type())
}

func structValue(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return rv
}
