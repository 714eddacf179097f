package adapter

import (
	"database/sql"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

func TestBindArgs(t *testing.T) {
	reg := types.NewRegistry()

	tests := []struct {
		name string
		arg  *dynamic.SQLArg
		want any
	}{
		{"string", dynamic.NewSQLArg("name", "ann"), "ann"},
		{"int widened", dynamic.NewSQLArg("age", 5), int64(5)},
		{"uint widened", dynamic.NewSQLArg("n", uint8(7)), int64(7)},
		{"nil", dynamic.NewSQLArg("x", nil), nil},
		{"bytes", dynamic.NewSQLArg("b", []byte("ab")), []byte("ab")},
		{"explicit handler", dynamic.NewTypedArg(9, types.Varchar, types.StringHandler), "9"},
		{"declared go type", &dynamic.SQLArg{Expr: "id", Value: "12", GoType: reflect.TypeOf(int64(0))}, int64(12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound, outs, err := BindArgs(reg, []*dynamic.SQLArg{tt.arg})
			require.NoError(t, err)
			assert.Empty(t, outs)
			require.Len(t, bound, 1)
			assert.Equal(t, tt.want, bound[0])
		})
	}
}

func TestBindArgs_Out(t *testing.T) {
	args := []*dynamic.SQLArg{
		dynamic.NewSQLArg("id", 1),
		{Expr: "total", Mode: dynamic.ModeOut},
		{Expr: "counter", AsName: "cnt", Value: 3, Mode: dynamic.ModeInOut},
	}

	bound, outs, err := BindArgs(types.NewRegistry(), args)
	require.NoError(t, err)
	require.Len(t, bound, 3)
	require.Len(t, outs, 2)

	assert.Equal(t, int64(1), bound[0])

	out, ok := bound[1].(sql.Out)
	require.True(t, ok, "OUT binds as sql.Out, got %T", bound[1])
	assert.False(t, out.In)
	assert.Equal(t, "total", outs[0].Name)
	assert.Nil(t, *outs[0].Dest)

	inout, ok := bound[2].(sql.Out)
	require.True(t, ok)
	assert.True(t, inout.In)
	assert.Equal(t, "cnt", outs[1].Name, "name= wins over the expression")
	assert.Equal(t, int64(3), *outs[1].Dest, "INOUT starts with the bound value")
	assert.Same(t, outs[1].Dest, inout.Dest)
}

func TestBindArgs_Error(t *testing.T) {
	args := []*dynamic.SQLArg{
		dynamic.NewSQLArg("ok", 1),
		dynamic.NewTypedArg("abc", types.Integer, types.IntegerHandler),
	}
	args[1].Expr = "age"

	_, _, err := BindArgs(types.NewRegistry(), args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind argument 2 (age)")
	assert.ErrorIs(t, err, types.ErrValueConversion)
}
