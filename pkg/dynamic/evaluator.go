package dynamic

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Evaluator evaluates an expression against a scope.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Eval(expr string, scope Scope) (any, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(expr string, scope Scope) (any, error)

// Eval calls f(expr, scope).
func (f EvaluatorFunc) Eval(expr string, scope Scope) (any, error) { return f(expr, scope) }

// MacroLookup finds named template fragments.
type MacroLookup interface {
	FindMacro(name string) (string, bool)
}

// MacroMap is a fixed MacroLookup.
type MacroMap map[string]string

// FindMacro returns the body registered under name.
func (m MacroMap) FindMacro(name string) (string, bool) {
	body, ok := m[name]
	return body, ok
}

// PathEvaluator resolves property paths such as user.tags[0] or
// m['key'] against the scope, and reads constants (null, true, false,
// numbers, quoted strings) as themselves. Missing names resolve to nil.
// It has no operators; use the Starlark evaluator for expressions such
// as age > 18.
type PathEvaluator struct{}

// Eval evaluates expr.
func (PathEvaluator) Eval(expr string, scope Scope) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if v, ok, err := parseLiteral(expr); ok || err != nil {
		return v, err
	}
	return resolvePath(expr, scope)
}

func parseLiteral(expr string) (any, bool, error) {
	switch expr {
	case "null", "nil", "None":
		return nil, true, nil
	case "true", "True":
		return true, true, nil
	case "false", "False":
		return false, true, nil
	}

	if q := expr[0]; q == '\'' || q == '"' {
		if len(expr) < 2 || expr[len(expr)-1] != q {
			return nil, false, fmt.Errorf("unterminated string literal %s", expr)
		}
		return expr[1 : len(expr)-1], true, nil
	}

	if c := expr[0]; c == '-' || c == '+' || unicode.IsDigit(rune(c)) {
		if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
			return n, true, nil
		}
		if f, err := strconv.ParseFloat(expr, 64); err == nil {
			return f, true, nil
		}
		return nil, false, fmt.Errorf("invalid number %s", expr)
	}
	return nil, false, nil
}

// resolvePath walks a dotted path with optional [index] suffixes.
func resolvePath(expr string, scope Scope) (any, error) {
	segments, err := splitPath(expr)
	if err != nil {
		return nil, err
	}

	root, ok := scope.Get(segments[0])
	if !ok {
		return nil, nil
	}
	cur := root
	for _, seg := range segments[1:] {
		cur = property(cur, seg)
		if cur == nil {
			return nil, nil
		}
	}
	return cur, nil
}

// splitPath turns a.b[0]['c'] into [a b 0 c].
func splitPath(expr string) ([]string, error) {
	var segments []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed index in %s", expr)
			}
			key := strings.TrimSpace(expr[i+1 : i+end])
			key = strings.Trim(key, `'"`)
			segments = append(segments, key)
			i += end
		default:
			if !isPathByte(c) {
				return nil, fmt.Errorf("unsupported expression %q", expr)
			}
			cur.WriteByte(c)
		}
	}
	flush()

	if len(segments) == 0 {
		return nil, fmt.Errorf("empty path %q", expr)
	}
	return segments, nil
}

// isPathByte accepts identifier bytes; bytes of multi-byte runes pass through.
func isPathByte(c byte) bool {
	return c == '_' || c >= utf8.RuneSelf || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// property reads one path segment from v. Unknown segments yield nil.
func property(v any, seg string) any {
	if a, ok := v.(*SQLArg); ok {
		v = a.Value
	}
	switch m := v.(type) {
	case map[string]any:
		return m[seg]
	case *OrderedMap:
		val, _ := m.Get(seg)
		return val
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil
		}
		return rv.Index(idx).Interface()
	case reflect.Struct:
		f := rv.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, seg) })
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
	return nil
}
