package errors

import stdErrors "errors"

// StopProcessingError signals a user-driven stop, e.g. backing out of the
// table picker. Commands treat it as a clean abort, not a failure.
type StopProcessingError struct {
	Reason string
}

func (e *StopProcessingError) Error() string {
	return e.Reason
}

// NewStopProcessingError creates a StopProcessingError with the given reason.
func NewStopProcessingError(reason string) *StopProcessingError {
	return &StopProcessingError{Reason: reason}
}

// IsStopProcessingError reports whether err has a StopProcessingError in its chain.
func IsStopProcessingError(err error) bool {
	var stopErr *StopProcessingError
	return stdErrors.As(err, &stopErr)
}
