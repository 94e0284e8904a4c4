package errors

import (
	stdErrors "errors"
	"fmt"
)

// SourceNotFoundError indicates that the input path does not resolve to a
// readable JSON document.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("the file at %s was not found", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error {
	return e.Err
}

// NewSourceNotFoundError creates a SourceNotFoundError for the given path.
func NewSourceNotFoundError(path string, err error) *SourceNotFoundError {
	return &SourceNotFoundError{Path: path, Err: err}
}

// IsSourceNotFoundError reports whether err is a SourceNotFoundError (even when wrapped).
func IsSourceNotFoundError(err error) bool {
	var notFoundErr *SourceNotFoundError
	return stdErrors.As(err, &notFoundErr)
}
