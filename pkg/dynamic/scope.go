package dynamic

import (
	"reflect"
	"sort"
)

// Reserved scope names. Parameter names must not start with ReservedPrefix
// or equal CurrentCaseKey; the engine keeps case bookkeeping in its
// build context and never writes these keys itself.
const (
	ReservedPrefix = "CASE_"
	CurrentCaseKey = "CURRENT_CASE_ID"
)

// Scope is the key/value environment expressions are evaluated against.
// A scope belongs to one build and is not safe for concurrent use.
type Scope interface {
	Get(name string) (any, bool)
	Set(name string, value any)
	Keys() []string
}

// MapScope is a Scope backed by a map.
type MapScope map[string]any

// NewScope creates a scope holding a copy of values.
func NewScope(values map[string]any) MapScope {
	s := make(MapScope, len(values))
	for k, v := range values {
		s[k] = v
	}
	return s
}

// Get returns the value bound to name.
func (s MapScope) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Set binds name to value.
func (s MapScope) Set(name string, value any) { s[name] = value }

// Keys returns the bound names (sorted).
func (s MapScope) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// childScope overlays local bindings on a parent scope.
// Writes stay local.
type childScope struct {
	parent Scope
	local  MapScope
}

// NewChildScope creates a scope that resolves names in local first,
// then in parent.
func NewChildScope(parent Scope, local map[string]any) Scope {
	return &childScope{parent: parent, local: NewScope(local)}
}

func (c *childScope) Get(name string) (any, bool) {
	if v, ok := c.local[name]; ok {
		return v, true
	}
	if c.parent == nil {
		return nil, false
	}
	return c.parent.Get(name)
}

func (c *childScope) Set(name string, value any) { c.local[name] = value }

func (c *childScope) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	add := func(ks []string) {
		for _, k := range ks {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	add(c.local.Keys())
	if c.parent != nil {
		add(c.parent.Keys())
	}
	sort.Strings(keys)
	return keys
}

// Truthy reports whether v counts as true in a rule test: nil, false,
// zero numbers, empty strings and empty collections are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *SQLArg:
		if x == nil {
			return false
		}
		return Truthy(x.Value)
	case *OrderedMap:
		return x.Len() > 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
