package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for negative prices and out-of-range rates. Inputs are never clamped.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes which input was rejected
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every InvalidInputError
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
