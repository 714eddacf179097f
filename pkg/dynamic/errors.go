package dynamic

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/dynsql/pkg/template"
	"github.com/leapstack-labs/dynsql/pkg/types"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrMissingRule          = errors.New("missing rule")
	ErrMacroNotFound        = errors.New("macro not found")
	ErrArity                = errors.New("argument count mismatch")
	ErrScope                = errors.New("rule used outside its scope")
	ErrConfigFormat         = errors.New("malformed argument config")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrValueType            = errors.New("unsupported value type")
	ErrMaxDepth             = errors.New("maximum nesting depth exceeded")

	ErrClassResolution = types.ErrClassResolution
)

// ClassResolutionError reports an unknown javaType or typeHandler.
type ClassResolutionError = types.ClassResolutionError

// MissingRuleError reports a rule name absent from every registry.
type MissingRuleError struct {
	Name string
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("rule %q not found", e.Name)
}

// Is reports whether target is ErrMissingRule.
func (e *MissingRuleError) Is(target error) bool { return target == ErrMissingRule }

// MacroNotFoundError reports a macro name unknown to the macro lookup.
type MacroNotFoundError struct {
	Name string
}

func (e *MacroNotFoundError) Error() string {
	return fmt.Sprintf("macro %q not found", e.Name)
}

// Is reports whether target is ErrMacroNotFound.
func (e *MacroNotFoundError) Is(target error) bool { return target == ErrMacroNotFound }

// ArityError reports a rule that produced the wrong number of arguments.
type ArityError struct {
	Rule string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("rule %s args error, require %d, but %d", e.Rule, e.Want, e.Got)
}

// Is reports whether target is ErrArity.
func (e *ArityError) Is(target error) bool { return target == ErrArity }

// ScopeError reports when/else evaluated without an enclosing case.
type ScopeError struct {
	Rule string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("rule %s must be used inside a case rule", e.Rule)
}

// Is reports whether target is ErrScope.
func (e *ScopeError) Is(target error) bool { return target == ErrScope }

// ConfigFormatError reports a malformed #{...} config string.
type ConfigFormatError struct {
	Config string
	Reason string
}

func (e *ConfigFormatError) Error() string {
	return fmt.Sprintf("malformed argument config %q: %s", e.Config, e.Reason)
}

// Is reports whether target is ErrConfigFormat.
func (e *ConfigFormatError) Is(target error) bool { return target == ErrConfigFormat }

// UnsupportedAlgorithmError reports a hash algorithm missing from the binary.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("hash algorithm %s is not available", e.Algorithm)
}

// Is reports whether target is ErrUnsupportedAlgorithm.
func (e *UnsupportedAlgorithmError) Is(target error) bool { return target == ErrUnsupportedAlgorithm }

// ValueTypeError reports a value of a kind a rule cannot iterate or use.
type ValueTypeError struct {
	Rule  string
	Value any
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("rule %s does not support values of type %T", e.Rule, e.Value)
}

// Is reports whether target is ErrValueType.
func (e *ValueTypeError) Is(target error) bool { return target == ErrValueType }

// RuleError wraps a failure raised while testing or executing a rule.
type RuleError struct {
	Rule string
	Pos  template.Position
	Err  error
}

func (e *RuleError) Error() string {
	if e.Pos.Line > 0 {
		if e.Pos.File != "" {
			return fmt.Sprintf("%s:%d:%d: rule %s: %v", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Rule, e.Err)
		}
		return fmt.Sprintf("%d:%d: rule %s: %v", e.Pos.Line, e.Pos.Column, e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// wrapRuleError attaches rule context to err, keeping the innermost
// rule when errors bubble up through nested builds.
func wrapRuleError(rule string, pos template.Position, err error) error {
	var re *RuleError
	if errors.As(err, &re) {
		return err
	}
	return &RuleError{Rule: rule, Pos: pos, Err: err}
}
