package adapter

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// OutArg is the destination of an OUT or INOUT argument.
type OutArg struct {
	Name string
	Dest *any
}

// BindArgs converts arguments into database/sql parameters in order.
//
// IN values go through the argument's TypeHandler, or the registry default
// for the declared Go type (falling back to the value's own type). OUT and
// INOUT arguments become sql.Out parameters; their destinations are
// returned so the caller can read them after execution.
func BindArgs(reg *types.Registry, args []*dynamic.SQLArg) ([]any, []*OutArg, error) {
	bound := make([]any, 0, len(args))
	var outs []*OutArg

	for i, arg := range args {
		if arg == nil {
			bound = append(bound, nil)
			continue
		}

		var value any
		if arg.Mode != dynamic.ModeOut {
			v, err := bindValue(reg, arg)
			if err != nil {
				return nil, nil, fmt.Errorf("bind argument %d (%s): %w", i+1, arg.Expr, err)
			}
			value = v
		}

		if !arg.Mode.IsOut() {
			bound = append(bound, value)
			continue
		}

		name := arg.AsName
		if name == "" {
			name = arg.Expr
		}
		dest := new(any)
		*dest = value
		outs = append(outs, &OutArg{Name: name, Dest: dest})
		bound = append(bound, sql.Out{Dest: dest, In: arg.Mode == dynamic.ModeInOut})
	}

	return bound, outs, nil
}

func bindValue(reg *types.Registry, arg *dynamic.SQLArg) (any, error) {
	h := arg.TypeHandler
	if h == nil {
		t := arg.GoType
		if t == nil && arg.Value != nil {
			t = reflect.TypeOf(arg.Value)
		}
		h = reg.HandlerFor(t)
	}
	v, err := h.Bind(arg.Value)
	if err != nil {
		return nil, err
	}
	return v, nil
}
