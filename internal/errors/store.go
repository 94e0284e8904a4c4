package errors

import (
	stdErrors "errors"
	"fmt"
)

// StoreError represents a failure from the embedded store (connection,
// relation creation, insertion). The underlying cause is reported verbatim.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError for the given store operation.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is a StoreError (even when wrapped).
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return stdErrors.As(err, &storeErr)
}
