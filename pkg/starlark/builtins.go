package starlark

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// Predeclared returns the globals every rule expression sees:
//
//   - null / nil (None) and true / false, so SQL-style literals work
//   - env, the current environment name
//   - target, the database target (when set)
//   - empty(x), True for None and empty strings or collections
//   - coalesce(a, b, ...), the first argument that is not None
//
// Extra globals are converted with GoToStarlark and may not shadow a builtin.
func Predeclared(env string, target *TargetInfo, extra map[string]any) (starlark.StringDict, error) {
	globals := starlark.StringDict{
		"null":     starlark.None,
		"nil":      starlark.None,
		"true":     starlark.True,
		"false":    starlark.False,
		"env":      starlark.String(env),
		"empty":    starlark.NewBuiltin("empty", builtinEmpty),
		"coalesce": starlark.NewBuiltin("coalesce", builtinCoalesce),
	}

	if target != nil {
		globals["target"] = target.ToStarlark()
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := globals[name]; ok {
			return nil, fmt.Errorf("global %q conflicts with builtin", name)
		}
		v, err := GoToStarlark(extra[name])
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", name, err)
		}
		globals[name] = v
	}

	globals.Freeze()
	return globals, nil
}

func builtinEmpty(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	v, err := ToGo(x)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(!dynamic.Truthy(v) && !isFalseOrZero(x)), nil
}

// isFalseOrZero reports values that are falsy without being empty.
func isFalseOrZero(x starlark.Value) bool {
	switch x.(type) {
	case starlark.Bool, starlark.Int, starlark.Float:
		return true
	}
	return false
}

func builtinCoalesce(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
	}
	for _, a := range args {
		if a != starlark.None {
			return a, nil
		}
	}
	return starlark.None, nil
}
