package errors

import (
	stdErrors "errors"
	"fmt"
)

// NormalizationError indicates that a single table's rows could not be
// flattened, even via the fallback conversion. It is non-fatal: the table is
// skipped and remaining tables are still processed.
type NormalizationError struct {
	Table string
	Err   error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not build a table for %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("could not build a table for %s", e.Table)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// NewNormalizationError creates a NormalizationError for the named table.
func NewNormalizationError(table string, err error) *NormalizationError {
	return &NormalizationError{Table: table, Err: err}
}

// IsNormalizationError reports whether err is a NormalizationError (even when wrapped).
func IsNormalizationError(err error) bool {
	var normErr *NormalizationError
	return stdErrors.As(err, &normErr)
}
