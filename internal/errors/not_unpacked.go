package errors

import (
	stdErrors "errors"
	"fmt"
)

// NotUnpackedError indicates that caching or introspection was requested
// before a successful unpack.
type NotUnpackedError struct {
	Operation string
}

func (e *NotUnpackedError) Error() string {
	return fmt.Sprintf("unpack the data before trying to %s", e.Operation)
}

// NewNotUnpackedError creates a NotUnpackedError for the attempted operation.
func NewNotUnpackedError(operation string) *NotUnpackedError {
	return &NotUnpackedError{Operation: operation}
}

// IsNotUnpackedError reports whether err is a NotUnpackedError (even when wrapped).
func IsNotUnpackedError(err error) bool {
	var notUnpackedErr *NotUnpackedError
	return stdErrors.As(err, &notUnpackedErr)
}
