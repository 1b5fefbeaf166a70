package domain

import "errors"

var ErrItemNotFound = errors.New("item not found")

// ValidationError reports missing or malformed input. Its message is safe to
// return to the caller verbatim.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
