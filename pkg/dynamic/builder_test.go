package dynamic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLBuilder_AppendSQL(t *testing.T) {
	b := NewSQLBuilder()
	assert.False(t, b.LastSpaceCharacter(), "empty builder has no trailing space")

	b.AppendSQL("select * from t ")
	assert.True(t, b.LastSpaceCharacter())

	b.AppendSQL("   ")
	assert.Equal(t, "select * from t ", b.SQL(), "whitespace after whitespace is dropped")

	b.AppendSQL("where a = ?", NewSQLArg("a", 1))
	assert.False(t, b.LastSpaceCharacter())
	b.AppendSQL("\n")
	assert.True(t, b.LastSpaceCharacter())

	assert.Equal(t, "select * from t where a = ?\n", b.SQL())
	require.Len(t, b.Args(), 1)
	assert.Equal(t, 1, b.Groups())
	assert.Equal(t, len("select * from t where a = ?\n"), b.Len())
}

func TestSQLBuilder_WhitespaceWithArgsIsKept(t *testing.T) {
	b := NewSQLBuilder()
	b.AppendSQL("a ")
	b.AppendSQL(" ", NewSQLArg("x", 1))
	assert.Equal(t, "a  ", b.SQL())
	assert.Len(t, b.Args(), 1)
}

func TestSQLBuilder_Groups(t *testing.T) {
	b := NewSQLBuilder()
	b.AppendSQL("in (?, ?, ?)", NewSQLArg("a", 1), NewSQLArg("b", 2), NewSQLArg("c", 3))
	assert.Equal(t, 1, b.Groups(), "one append is one group")
	assert.Len(t, b.Args(), 3)

	b.AppendSQL(" and x = ?", NewSQLArg("x", nil))
	assert.Equal(t, 2, b.Groups())
	assert.False(t, b.allArgsNil())
}

func TestSQLBuilder_AppendBuilder(t *testing.T) {
	outer := NewSQLBuilder()
	outer.AppendSQL("select ")

	inner := NewSQLBuilder()
	inner.AppendSQL("?", NewSQLArg("a", "x"))
	inner.AppendSQL(", ?", NewSQLArg("b", "y"))

	outer.AppendBuilder(inner)
	outer.AppendBuilder(nil)

	assert.Equal(t, "select ?, ?", outer.SQL())
	assert.Equal(t, []any{"x", "y"}, ArgValues(outer.Args()))
	assert.Equal(t, 2, outer.Groups())
}

func TestSQLBuilder_AllArgsNil(t *testing.T) {
	b := NewSQLBuilder()
	assert.True(t, b.allArgsNil(), "no args counts as all nil")

	b.AppendSQL("?", NewSQLArg("a", nil))
	assert.True(t, b.allArgsNil())

	b.AppendSQL("?", NewSQLArg("b", 0))
	assert.False(t, b.allArgsNil())
}

func TestSQLArg_String(t *testing.T) {
	assert.Equal(t, "<nil>", (*SQLArg)(nil).String())
	assert.Equal(t, "name=abc", NewSQLArg("name", "abc").String())

	a := NewSQLArg("age", 5)
	a.JDBCType = 4
	assert.Equal(t, "age=5(INTEGER)", a.String())
}

func TestArgMode(t *testing.T) {
	assert.Equal(t, "IN", ModeIn.String())
	assert.Equal(t, "INOUT", ModeInOut.String())
	assert.False(t, ModeIn.IsOut())
	assert.True(t, ModeOut.IsOut())
	assert.True(t, ModeInOut.IsOut())
}
