package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for type resolution.
var (
	ErrUnknownJDBCType = errors.New("unknown jdbc type")
	ErrClassResolution = errors.New("class resolution failed")
	ErrValueConversion = errors.New("value conversion failed")
)

// ClassResolutionError reports a type or handler name that could not be resolved.
type ClassResolutionError struct {
	Kind string // "type" or "handler"
	Name string
}

func (e *ClassResolutionError) Error() string {
	return fmt.Sprintf("class resolution failed: unknown %s %q", e.Kind, e.Name)
}

// Is reports whether target is ErrClassResolution.
func (e *ClassResolutionError) Is(target error) bool {
	return target == ErrClassResolution
}
