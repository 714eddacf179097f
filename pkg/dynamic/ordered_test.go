package dynamic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap(0)
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys(), "overwrite keeps position")
	assert.Equal(t, 2, m.Len())
	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, map[string]any{"a": 2, "b": 3}, m.Map())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(data))

	var empty *OrderedMap
	assert.Equal(t, 0, empty.Len())
	assert.False(t, Truthy(empty))
	assert.False(t, Truthy(NewOrderedMap(1)))
	assert.True(t, Truthy(m))
}

func TestPairsRule_OrderedMap(t *testing.T) {
	fields := NewOrderedMap(3)
	fields.Set("z", 1)
	fields.Set("a", 2)
	fields.Set("m", 3)

	runRuleCases(t, New(Config{}), []ruleCase{
		{"insertion order", "HSET key @{pairs, :m,:k :v}", map[string]any{"m": fields},
			"HSET key ? ? ? ? ? ?", []any{"z", 1, "a", 2, "m", 3}},
		{"empty", "HSET key @{pairs, :m,:k :v}", map[string]any{"m": NewOrderedMap(0)}, "HSET key ", nil},
	})

	t.Run("path into ordered map", func(t *testing.T) {
		sql, args := render(t, New(Config{}), "a = :m.a", map[string]any{"m": fields})
		assert.Equal(t, "a = ?", sql)
		assert.Equal(t, []any{2}, ArgValues(args))
	})
}
