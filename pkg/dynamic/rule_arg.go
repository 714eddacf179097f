package dynamic

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dynsql/pkg/template"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// maxArgConfigTokens bounds the comma separated parts of #{...}.
const maxArgConfigTokens = 10

// argConfig is the parsed form of a #{expr, key=value, ...} string.
type argConfig struct {
	expr        string
	mode        ArgMode
	jdbcType    types.JDBCType
	goType      reflect.Type
	typeHandler string
	name        string
	typeName    string
	scale       *int
	extractor   string
	rowHandler  string
	rowMapper   string
}

// parseArgConfig parses an argument config. The first token is the
// value expression unless it contains '='; the rest are key=value
// pairs. Unknown keys are ignored.
func parseArgConfig(src string, reg *types.Registry) (*argConfig, error) {
	tokens := template.SplitTopLevel(src, ',', 0)
	if len(tokens) > maxArgConfigTokens {
		return nil, &ConfigFormatError{Config: src, Reason: "too many options"}
	}

	cfg := &argConfig{jdbcType: types.Unknown}
	first := strings.TrimSpace(tokens[0])
	options := tokens[1:]
	if strings.Contains(first, "=") {
		options = tokens
	} else {
		cfg.expr = first
	}

	for _, tok := range options {
		tok = strings.TrimSpace(tok)
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, &ConfigFormatError{Config: src, Reason: "option " + strconv.Quote(tok) + " is not key=value"}
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "mode":
			mode, err := parseArgMode(value)
			if err != nil {
				return nil, &ConfigFormatError{Config: src, Reason: err.Error()}
			}
			cfg.mode = mode
		case "jdbctype":
			t, err := types.ParseJDBCType(value)
			if err != nil {
				return nil, &ConfigFormatError{Config: src, Reason: err.Error()}
			}
			cfg.jdbcType = t
		case "javatype":
			t, err := reg.LookupGoType(value)
			if err != nil {
				return nil, err
			}
			cfg.goType = t
		case "typehandler":
			cfg.typeHandler = value
		case "name":
			cfg.name = value
		case "typename":
			cfg.typeName = value
		case "scale":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, &ConfigFormatError{Config: src, Reason: "scale " + strconv.Quote(value) + " is not an integer"}
			}
			cfg.scale = &n
		case "extractor":
			cfg.extractor = value
		case "rowhandler":
			cfg.rowHandler = value
		case "rowmapper":
			cfg.rowMapper = value
		}
	}
	return cfg, nil
}

func parseArgMode(s string) (ArgMode, error) {
	switch strings.ToUpper(s) {
	case "", "IN":
		return ModeIn, nil
	case "OUT":
		return ModeOut, nil
	case "INOUT":
		return ModeInOut, nil
	}
	return ModeIn, fmt.Errorf("unknown mode %q", s)
}

// parsedArgConfig returns the parsed config for src, parsing it once.
func (e *Engine) parsedArgConfig(src string) (*argConfig, error) {
	if cfg, ok := e.argConfigs.Load(src); ok {
		return cfg.(*argConfig), nil
	}
	cfg, err := parseArgConfig(src, e.types)
	if err != nil {
		return nil, err
	}
	actual, _ := e.argConfigs.LoadOrStore(src, cfg)
	return actual.(*argConfig), nil
}

// argRule binds one "?" placeholder. It backs #{...}, :name and &name.
type argRule struct{}

func (argRule) Test(Scope, *Context, string) (bool, error) { return true, nil }

func (argRule) Execute(scope Scope, ctx *Context, b *SQLBuilder, activeExpr, ruleValue string) error {
	cfg, err := ctx.engine.parsedArgConfig(combineExpr(activeExpr, ruleValue))
	if err != nil {
		return err
	}

	var value any
	if cfg.mode != ModeOut {
		value, err = ctx.Eval(cfg.expr, scope)
		if err != nil {
			return err
		}
	}
	if pre, ok := value.(*SQLArg); ok && pre != nil {
		b.AppendSQL("?", pre)
		return nil
	}

	arg := &SQLArg{
		Expr:       cfg.expr,
		Value:      value,
		Mode:       cfg.mode,
		JDBCType:   cfg.jdbcType,
		GoType:     cfg.goType,
		AsName:     cfg.name,
		TypeName:   cfg.typeName,
		Scale:      cfg.scale,
		Extractor:  cfg.extractor,
		RowHandler: cfg.rowHandler,
		RowMapper:  cfg.rowMapper,
	}

	if cfg.typeHandler != "" {
		goType := cfg.goType
		if goType == nil && value != nil {
			goType = reflect.TypeOf(value)
		}
		h, err := ctx.Types().CreateHandler(cfg.typeHandler, goType)
		if err != nil {
			return err
		}
		arg.TypeHandler = h
	}

	b.AppendSQL("?", arg)
	return nil
}
