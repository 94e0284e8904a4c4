package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// MalformedSourceError indicates that the input document could not be parsed
// as the expected sequence of two-field table records.
type MalformedSourceError struct {
	Reason  string
	Missing []string // required fields absent from the document, if any
}

func (e *MalformedSourceError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("input JSON is missing the required columns: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// NewMalformedSourceError creates a MalformedSourceError with the given reason.
func NewMalformedSourceError(reason string) *MalformedSourceError {
	return &MalformedSourceError{Reason: reason}
}

// NewMissingColumnsError creates a MalformedSourceError naming the required
// columns absent from the parsed document.
func NewMissingColumnsError(missing ...string) *MalformedSourceError {
	return &MalformedSourceError{Missing: missing}
}

// IsMalformedSourceError reports whether err is a MalformedSourceError (even when wrapped).
func IsMalformedSourceError(err error) bool {
	var malformedErr *MalformedSourceError
	return stdErrors.As(err, &malformedErr)
}
