package weft

import (
	"errors"
	"fmt"
)

// ErrUnknownContext is returned by operations that need an existing
// context (snapshot save, record inspection) when the key has never
// been reconciled. ClearContext deliberately does not return it;
// clearing an unknown context is a no-op.
var ErrUnknownContext = errors.New("weft: unknown context")

// ReconcileError wraps a failure with the context and operation it
// occurred in. The wrapped error is reachable with errors.Is/As.
type ReconcileError struct {
	Context string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	return fmt.Sprintf("weft: %s on context %q: %v", e.Op, e.Context, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}
