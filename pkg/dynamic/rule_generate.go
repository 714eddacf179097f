package dynamic

import (
	"crypto"
	_ "crypto/md5" // registers crypto.MD5
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/dynsql/pkg/types"
)

var stringType = reflect.TypeOf("")

// md5Rule binds the hex MD5 digest of its single argument's string form.
type md5Rule struct {
	name   string
	ifMode bool
}

func (r *md5Rule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *md5Rule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	if !crypto.MD5.Available() {
		return &UnsupportedAlgorithmError{Algorithm: "MD5"}
	}

	expr := ruleExpr(r.ifMode, activeExpr, ruleValue)
	arg, err := evalArgument(r.name, ctx, scope, expr)
	if err != nil {
		return err
	}

	value, _ := argValue(arg)
	text := ""
	if value != nil {
		text = fmt.Sprint(value)
	}

	h := crypto.MD5.New()
	h.Write([]byte(text))
	digest := hex.EncodeToString(h.Sum(nil))

	b.AppendSQL("?", &SQLArg{Expr: strings.TrimSpace(expr), Value: digest, JDBCType: types.Varchar, GoType: stringType})
	return nil
}

// uuidRule binds a fresh random UUID, without hyphens when compact.
type uuidRule struct {
	name    string
	compact bool
	ifMode  bool
}

func (r *uuidRule) Test(scope Scope, ctx *Context, activeExpr string) (bool, error) {
	return testIf(r.ifMode, scope, ctx, activeExpr)
}

func (r *uuidRule) Execute(_ Scope, _ *Context, b *SQLBuilder, _, _ string) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}

	s := id.String()
	if r.compact {
		s = strings.ReplaceAll(s, "-", "")
	}
	b.AppendSQL("?", &SQLArg{Expr: r.name, Value: s, JDBCType: types.Varchar, GoType: stringType})
	return nil
}
