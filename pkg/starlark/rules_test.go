package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dynsql/internal/testutil"
	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// Rule behaviour with Starlark expressions, the evaluator the engine
// runs with in projects.
func TestRulesWithStarlark(t *testing.T) {
	engine := dynamic.New(dynamic.Config{Evaluator: newTestEvaluator(t), Logger: testutil.NewTestLogger(t)})
	scope := map[string]any{
		"name":   "abc",
		"age":    20,
		"status": "B",
		"ids":    []int{1, 2, 3},
		"tags":   []string{"x", "y"},
		"fields": map[string]any{"b": 2, "a": 1},
		"pre":    dynamic.NewSQLArg("pre", 30),
	}

	tests := []struct {
		name     string
		template string
		scope    map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{"and keyword", "select * from t @{and,name = :name}", scope,
			"select * from t where name = ?", []any{"abc"}},
		{"and after where", "select * from t where @{and,b = :name}", scope,
			"select * from t where b = ?", []any{"abc"}},
		{"ifand expression", "select * from t @{ifand, age >= 18, age = :age}", scope,
			"select * from t where  age = ?", []any{20}},
		{"ifand expression false", "select * from t @{ifand, age < 18, age = :age}", scope,
			"select * from t ", []any{}},
		{"ifor", "where a = 1 @{ifor,len(tags) > 1,b = :name}", scope,
			"where a = 1 or b = ?", []any{"abc"}},
		{"ifset", "update t @{ifset, name != None, name = :name}", scope,
			"update t set  name = ?", []any{"abc"}},
		{"ifset missing", "update t @{ifset, nick != None, nick = :nick}", scope,
			"update t ", []any{}},
		{"in comprehension", "id @{in, [i for i in ids if i > 1]}", scope,
			"id in (?, ?)", []any{int64(2), int64(3)}},
		{"in named", "tag @{in, :tags}", scope, "tag in (?, ?)", []any{"x", "y"}},
		{"case switch", "@{case, status, @{when, 'A', isA} @{when, 'B', isB}}", scope, " isB", []any{}},
		{"case truthiness", "@{case,, @{when, age > 18, adult} @{else,, minor}}", scope, " adult", []any{}},
		{"case pre-bound switch", "@{case, pre, @{when, 30, hit} @{else,, miss}}", scope, " hit", []any{}},
		{"pairs dict literal keeps order", "HSET k @{pairs, {'b': 1, 'a': 2}, :k}", scope,
			"HSET k  ?  ?", []any{"b", "a"}},
		{"pairs dict values", "HSET k @{pairs, {'b': 1, 'a': 2}, :v}", scope,
			"HSET k  ?  ?", []any{int64(1), int64(2)}},
		{"pairs go map sorted", "HSET k @{pairs, fields, :k}", scope,
			"HSET k  ?  ?", []any{"a", "b"}},
		{"pairs list", "LPUSH k @{pairs, tags,:v}", scope, "LPUSH k ? ?", []any{"x", "y"}},
		{"if expression", "@{if, 'a' in tags or age > 1, x = :age}", scope, " x = ?", []any{20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := engine.Render(tt.template, dynamic.NewScope(tt.scope), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, dynamic.ArgValues(args))
		})
	}
}
