package dynamic

import (
	"bytes"
	"encoding/json"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// Evaluators return it for dict values so the pairs rule can walk
// entries in the order they were written. Setting an existing key
// keeps its position.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty map with room for size entries.
func NewOrderedMap(size int) *OrderedMap {
	return &OrderedMap{
		keys:   make([]string, 0, size),
		values: make(map[string]any, size),
	}
}

// Set stores value under key.
func (m *OrderedMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Map returns the entries as a plain map.
func (m *OrderedMap) Map() map[string]any {
	out := make(map[string]any, m.Len())
	if m != nil {
		for k, v := range m.values {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
