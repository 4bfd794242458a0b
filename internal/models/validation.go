package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// isValidEmail performs basic email validation
func isValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// SanitizeString collapses runs of whitespace and trims the string
func SanitizeString(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ValidateRequired checks that a required string field is not blank
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fieldName + " is required",
			Value:   value,
		}
	}
	return nil
}

// ValidateStringLength validates length constraints on the trimmed value; zero disables a bound
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	length := len(strings.TrimSpace(value))

	if minLength > 0 && length < minLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be at least %d characters", fieldName, minLength),
			Value:   value,
		}
	}

	if maxLength > 0 && length > maxLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s cannot exceed %d characters", fieldName, maxLength),
			Value:   value,
		}
	}

	return nil
}

// validateOptionalRef checks an optional free-form reference such as a vehicle or customer id
func validateOptionalRef(ref *string, fieldName string) error {
	if ref == nil {
		return nil
	}
	return ValidateStringLength(*ref, fieldName, 0, 100)
}

// ValidateAmount rejects negative money amounts
func ValidateAmount(amount decimal.Decimal, fieldName string) error {
	if amount.IsNegative() {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s cannot be negative, got %s", fieldName, amount.String()),
			Value:   amount.String(),
		}
	}
	return nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return optionalString(*s)
}

// optionalString maps blank input to nil so absent references stay NULL in storage
func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
