package ir

import (
	"errors"
	"fmt"
)

// InvariantCode identifies an internal-invariant violation.
type InvariantCode string

const (
	// ErrDuplicateVariable: NewVar called with an already-registered name.
	ErrDuplicateVariable InvariantCode = "I001"

	// ErrMissingDispatch: a Branch targets a block with no dispatch target.
	ErrMissingDispatch InvariantCode = "I002"

	// ErrRemovedReference: a surviving statement still branches to a
	// block the optimizer removed.
	ErrRemovedReference InvariantCode = "I003"

	// ErrUnknownNode: a statement or expression of an unknown kind.
	ErrUnknownNode InvariantCode = "I004"
)

// InvariantError is the panic value for internal-invariant violations.
//
// These are programmer errors in the producers or in this module, never
// user errors: generation aborts outright and there is no partial output.
// Command boundaries may recover the panic to report it; library code
// never does.
type InvariantError struct {
	Code    InvariantCode
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated [%s]: %s", e.Code, e.Message)
}

// Invariantf builds an InvariantError. Callers panic with the result:
//
//	panic(ir.Invariantf(ir.ErrMissingDispatch, "block %q", b.Label))
func Invariantf(code InvariantCode, format string, args ...any) *InvariantError {
	return &InvariantError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsInvariantError reports whether err is (or wraps) an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// AsInvariantError converts a recovered panic value into an
// InvariantError. It returns nil for any other value.
func AsInvariantError(recovered any) *InvariantError {
	switch v := recovered.(type) {
	case *InvariantError:
		return v
	case error:
		var ie *InvariantError
		if errors.As(v, &ie) {
			return ie
		}
	}
	return nil
}
