package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/repositories"
)

var (
	// ErrInvalidInput is returned for rejected requests: bad shape, negative prices, rates outside [0, 100]
	ErrInvalidInput = pricing.ErrInvalidInput

	// ErrNotFound is returned when a referenced record or snapshot does not exist
	ErrNotFound = repositories.ErrNotFound

	// ErrPersistenceUnavailable is returned by the snapshot writer only. Callers log it and carry on.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// invalidRequest converts validator and model validation failures into InvalidInput
func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &pricing.InvalidInputError{
			Field:  fe.Namespace(),
			Reason: fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return &pricing.InvalidInputError{Field: ve.Field, Reason: ve.Message}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func invalidField(field string, err error) error {
	return &pricing.InvalidInputError{Field: field, Reason: err.Error()}
}
