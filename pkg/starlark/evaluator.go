package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// Config configures an Evaluator.
type Config struct {
	// Env is exposed as the "env" global
	Env string
	// Target is exposed as the "target" global (optional)
	Target *TargetInfo
	// Globals are extra read-only globals
	Globals map[string]any
	// PoolSize bounds the idle thread pool (DefaultPoolSize if zero)
	PoolSize int
	// Logger receives print() output and compile logs (optional, uses discard if nil)
	Logger *slog.Logger
}

// Evaluator evaluates rule expressions as Starlark expressions.
//
// Scope names used by an expression are converted with GoToStarlark;
// names missing from the scope evaluate to None. An expression that is
// a single identifier returns the scope value unchanged, so pre-bound
// *dynamic.SQLArg values and exact Go types survive.
//
// It is safe for concurrent use.
type Evaluator struct {
	opts        *syntax.FileOptions
	predeclared starlark.StringDict
	pool        *ThreadPool
	compiled    sync.Map // expr -> *compiledExpr
	logger      *slog.Logger
}

var _ dynamic.Evaluator = (*Evaluator)(nil)

// compiledExpr is the cached static analysis of one expression.
type compiledExpr struct {
	ident string   // set when the expression is a bare identifier
	names []string // free identifiers in first-use order
}

// New creates an evaluator.
func New(cfg Config) (*Evaluator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	predeclared, err := Predeclared(cfg.Env, cfg.Target, cfg.Globals)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		opts:        &syntax.FileOptions{Set: true},
		predeclared: predeclared,
		pool:        NewThreadPool(cfg.PoolSize, logger),
		logger:      logger,
	}, nil
}

// Eval evaluates expr against scope.
func (e *Evaluator) Eval(expr string, scope dynamic.Scope) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	c, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	if c.ident != "" {
		if v, ok := scope.Get(c.ident); ok {
			return v, nil
		}
		if v, ok := e.predeclared[c.ident]; ok {
			return ToGo(v)
		}
		if v, ok := starlark.Universe[c.ident]; ok {
			return ToGo(v)
		}
		return nil, nil
	}

	env := make(starlark.StringDict, len(e.predeclared)+len(c.names))
	for k, v := range e.predeclared {
		env[k] = v
	}
	for _, name := range c.names {
		v, ok := scope.Get(name)
		if !ok {
			if _, pre := env[name]; !pre && !starlark.Universe.Has(name) {
				env[name] = starlark.None
			}
			continue
		}
		sv, err := GoToStarlark(v)
		if err != nil {
			return nil, &EvalError{Expr: expr, Message: fmt.Sprintf("convert %s: %v", name, err), Err: err}
		}
		env[name] = sv
	}

	thread := e.pool.Get(expr)
	defer e.pool.Put(thread)

	result, err := starlark.EvalOptions(e.opts, thread, "expr", expr, env)
	if err != nil {
		return nil, newEvalError(expr, err)
	}
	return ToGo(result)
}

// compile parses expr once and records its free identifiers.
// Parse failures are not cached.
func (e *Evaluator) compile(expr string) (*compiledExpr, error) {
	if c, ok := e.compiled.Load(expr); ok {
		return c.(*compiledExpr), nil
	}

	parsed, err := e.opts.ParseExpr("expr", expr, 0)
	if err != nil {
		return nil, newEvalError(expr, err)
	}

	c := &compiledExpr{}
	if id, ok := parsed.(*syntax.Ident); ok {
		c.ident = id.Name
	}

	seen := make(map[string]bool)
	syntax.Walk(parsed, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			c.names = append(c.names, id.Name)
		}
		return true
	})

	actual, loaded := e.compiled.LoadOrStore(expr, c)
	if !loaded {
		e.logger.Debug("compiled starlark expression", "expr", expr, "names", len(c.names))
	}
	return actual.(*compiledExpr), nil
}

// Pool returns the evaluator's thread pool.
func (e *Evaluator) Pool() *ThreadPool { return e.pool }

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	Expr    string
	Line    int
	Col     int
	Message string
	Err     error
}

func newEvalError(expr string, err error) *EvalError {
	ee := &EvalError{Expr: expr, Message: err.Error(), Err: err}

	var serr syntax.Error
	if errors.As(err, &serr) {
		ee.Line, ee.Col = int(serr.Pos.Line), int(serr.Pos.Col)
		ee.Message = serr.Msg
	}
	var rerr *starlark.EvalError
	if errors.As(err, &rerr) {
		ee.Message = rerr.Msg
	}
	return ee
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("starlark %d:%d: %s", e.Line, e.Col, e.Message)
	}
	return "starlark: " + e.Message
}

func (e *EvalError) Unwrap() error { return e.Err }
