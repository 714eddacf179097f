package types

import (
	"database/sql/driver"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJDBCType(t *testing.T) {
	tests := []struct {
		input   string
		want    JDBCType
		wantErr bool
	}{
		{"VARCHAR", Varchar, false},
		{"varchar", Varchar, false},
		{"Integer", Integer, false},
		{"INT", Integer, false},
		{"int", Integer, false},
		{" TIMESTAMP ", Timestamp, false},
		{"12", Varchar, false},
		{"-5", BigInt, false},
		{"4242", JDBCType(4242), false},
		{"REF_CURSOR", RefCursor, false},
		{"NOPE", Unknown, true},
		{"", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJDBCType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownJDBCType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJDBCType_String(t *testing.T) {
	assert.Equal(t, "INTEGER", Integer.String())
	assert.Equal(t, "VARCHAR", Varchar.String())
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, "4242", JDBCType(4242).String())
	assert.Contains(t, JDBCTypeNames(), "NVARCHAR")
}

func TestRegistry_LookupGoType(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		want reflect.Type
	}{
		{"string", reflect.TypeOf("")},
		{"java.lang.String", reflect.TypeOf("")},
		{"java.lang.Integer", reflect.TypeOf(int64(0))},
		{"Long", reflect.TypeOf(int64(0))},
		{"double", reflect.TypeOf(float64(0))},
		{"java.sql.Timestamp", reflect.TypeOf(time.Time{})},
		{"java.util.UUID", reflect.TypeOf(uuid.UUID{})},
		{"com.example.Integer", reflect.TypeOf(int64(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.LookupGoType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := r.LookupGoType("com.example.Missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassResolution)

	var cre *ClassResolutionError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "type", cre.Kind)
	assert.Equal(t, "com.example.Missing", cre.Name)
}

func TestRegistry_RegisterGoType(t *testing.T) {
	type money struct{ cents int64 }
	r := NewRegistry()
	r.RegisterGoType("Money", reflect.TypeOf(money{}))

	got, err := r.LookupGoType("com.shop.Money")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(money{}), got)
}

func TestRegistry_CreateHandler(t *testing.T) {
	r := NewRegistry()

	h, err := r.CreateHandler("net.hasor.db.types.handler.StringTypeHandler", nil)
	require.NoError(t, err)
	v, err := h.Bind(42)
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = r.CreateHandler("NoSuchTypeHandler", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassResolution)
}

func TestRegistry_CreateHandlerCaches(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.RegisterHandler("Counting", func(reflect.Type) (Handler, error) {
		calls++
		return StringHandler, nil
	})

	for range 3 {
		_, err := r.CreateHandler("Counting", reflect.TypeOf(""))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls, "handler should be constructed once per Go type")

	_, err := r.CreateHandler("Counting", reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// re-registering drops cached instances
	r.RegisterHandler("Counting", func(reflect.Type) (Handler, error) {
		calls += 10
		return StringHandler, nil
	})
	_, err = r.CreateHandler("Counting", reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, 12, calls)
}

func TestRegistry_CreateHandlerFactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.RegisterHandler("Broken", func(reflect.Type) (Handler, error) { return nil, boom })

	_, err := r.CreateHandler("Broken", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_HandlerFor(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, reflect.ValueOf(DefaultHandler).Pointer(), reflect.ValueOf(r.HandlerFor(nil)).Pointer())

	v, err := r.HandlerFor(reflect.TypeOf(int32(0))).Bind(int32(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = r.HandlerFor(reflect.TypeOf(uuid.UUID{})).Bind(uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", v)
}

func TestHandlers_Bind(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		handler Handler
		input   any
		want    driver.Value
		wantErr bool
	}{
		{"default nil", DefaultHandler, nil, nil, false},
		{"default int", DefaultHandler, 5, int64(5), false},
		{"default string", DefaultHandler, "x", "x", false},
		{"string from int", StringHandler, 5, "5", false},
		{"string from bytes", StringHandler, []byte("ab"), "ab", false},
		{"integer from string", IntegerHandler, "12", int64(12), false},
		{"integer from float", IntegerHandler, 3.9, int64(3), false},
		{"integer bad string", IntegerHandler, "x", nil, true},
		{"integer from struct", IntegerHandler, struct{}{}, nil, true},
		{"float from int", FloatHandler, 2, float64(2), false},
		{"float from string", FloatHandler, "1.5", 1.5, false},
		{"boolean from string", BooleanHandler, "true", true, false},
		{"boolean from int", BooleanHandler, 0, false, false},
		{"time passthrough", TimeHandler, ts, ts, false},
		{"time from string", TimeHandler, "2024-01-02T03:04:05Z", ts, false},
		{"time bad", TimeHandler, 1.5, nil, true},
		{"bytes from string", BytesHandler, "ab", []byte("ab"), false},
		{"uuid from string", UUIDHandler, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"uuid bad", UUIDHandler, "nope", nil, true},
		{"json map", JSONHandler, map[string]any{"a": 1}, `{"a":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.handler.Bind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValueConversion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
