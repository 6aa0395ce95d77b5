package staging

import "errors"

// ErrFileTooLarge is returned when a single upload exceeds the per-file cap.
var ErrFileTooLarge = errors.New("File too large")

// ValidationError is a client error detected before any upstream call.
// Message is safe to return to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a *ValidationError carrying msg.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}
