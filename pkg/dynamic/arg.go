package dynamic

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/dynsql/pkg/types"
)

// ArgMode is the direction of a bound argument.
type ArgMode int

// ArgMode constants.
const (
	ModeIn ArgMode = iota
	ModeOut
	ModeInOut
)

func (m ArgMode) String() string {
	switch m {
	case ModeIn:
		return "IN"
	case ModeOut:
		return "OUT"
	case ModeInOut:
		return "INOUT"
	default:
		return "UNKNOWN"
	}
}

// IsOut reports whether the database writes a value back into the argument.
func (m ArgMode) IsOut() bool { return m == ModeOut || m == ModeInOut }

// SQLArg is one bound placeholder plus its binding metadata.
// It is built once by a rule and only read afterwards.
type SQLArg struct {
	Expr        string         // source expression
	Value       any            // evaluated value, nil for OUT arguments
	Mode        ArgMode        // IN, OUT or INOUT
	JDBCType    types.JDBCType // types.Unknown when not declared
	GoType      reflect.Type   // declared value type, nil when not declared
	TypeHandler types.Handler  // nil means the registry default for the value
	AsName      string         // name=...
	TypeName    string         // typeName=...
	Scale       *int           // scale=...
	Extractor   string         // extractor=...
	RowHandler  string         // rowHandler=...
	RowMapper   string         // rowMapper=...
}

// NewSQLArg creates an IN argument with no declared type.
func NewSQLArg(expr string, value any) *SQLArg {
	return &SQLArg{Expr: expr, Value: value, JDBCType: types.Unknown}
}

// NewTypedArg creates an IN argument with a JDBC type and handler.
func NewTypedArg(value any, jdbcType types.JDBCType, handler types.Handler) *SQLArg {
	return &SQLArg{Value: value, JDBCType: jdbcType, TypeHandler: handler}
}

// withValue returns a copy of a carrying a different value.
func (a *SQLArg) withValue(expr string, value any) *SQLArg {
	c := *a
	c.Expr = expr
	c.Value = value
	return &c
}

// String formats the argument for logs.
func (a *SQLArg) String() string {
	if a == nil {
		return "<nil>"
	}
	if a.JDBCType == types.Unknown {
		return fmt.Sprintf("%s=%v", a.Expr, a.Value)
	}
	return fmt.Sprintf("%s=%v(%s)", a.Expr, a.Value, a.JDBCType)
}

// ArgValues returns the raw values of args in order.
func ArgValues(args []*SQLArg) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
