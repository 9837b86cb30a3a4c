package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrInvalidType     = errors.New("type must be income or expense")
	ErrInvalidName     = errors.New("name cannot be empty")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports a rejected input field. It unwraps to the
// sentinel describing the failure.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
