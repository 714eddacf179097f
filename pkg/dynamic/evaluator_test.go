package dynamic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathEvaluator(t *testing.T) {
	type user struct {
		Name string
		Tags []string
	}

	scope := NewScope(map[string]any{
		"name": "abc",
		"id":   map[string]any{"ccc": map[string]any{"aaa": []any{"abc"}}},
		"user": &user{Name: "ann", Tags: []string{"x", "y"}},
		"ages": map[string]int{"bob": 7},
		"arg":  NewSQLArg("a", map[string]any{"k": "v"}),
		"flag": true,
	})

	tests := []struct {
		expr string
		want any
	}{
		{"name", "abc"},
		{" name ", "abc"},
		{"missing", nil},
		{"missing.deeper", nil},
		{"id.ccc['aaa'][0]", "abc"},
		{"id.ccc.aaa[5]", nil},
		{"user.name", "ann"},
		{"user.Tags[1]", "y"},
		{"ages.bob", 7},
		{"arg.k", "v"},
		{"null", nil},
		{"true", true},
		{"False", false},
		{"10", int64(10)},
		{"-2", int64(-2)},
		{"1.5", 1.5},
		{"'A'", "A"},
		{`"B"`, "B"},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := PathEvaluator{}.Eval(tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathEvaluator_Errors(t *testing.T) {
	scope := MapScope{}
	for _, expr := range []string{"'open", "a[0", "a > 1", "12ab", "!flag", "not flag"} {
		t.Run(expr, func(t *testing.T) {
			_, err := PathEvaluator{}.Eval(expr, scope)
			assert.Error(t, err)
		})
	}
}

func TestMacroMap(t *testing.T) {
	m := MacroMap{"cols": "id, name"}
	body, ok := m.FindMacro("cols")
	assert.True(t, ok)
	assert.Equal(t, "id, name", body)

	_, ok = MacroMap(nil).FindMacro("cols")
	assert.False(t, ok)
}
