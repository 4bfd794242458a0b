package repositories

import (
	"errors"
	"fmt"
	"strings"
)

// Entity names used in repository errors and log fields
const (
	EntityServiceRecord    = "service_record"
	EntityReceiptSnapshot  = "receipt_snapshot"
	EntityBusinessSettings = "business_settings"
)

var (
	ErrNotFound       = errors.New("entity not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidID      = errors.New("invalid ID")
	ErrValidation     = errors.New("validation error")
	ErrTransaction    = errors.New("transaction error")

	// ErrCorruptRow is returned when a stored money amount, date or JSON column cannot be decoded
	ErrCorruptRow = errors.New("corrupt row")
)

// RepositoryError wraps a storage failure with the operation and entity involved
type RepositoryError struct {
	Op      string
	Entity  string
	ID      string
	Err     error
	Message string
}

func (e *RepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s operation failed for ID %s: %v", e.Entity, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s operation failed: %v", e.Entity, e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new repository error
func NewRepositoryError(op, entity, id string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Entity: entity, ID: id, Err: err}
}

// NotFoundError reports a single missing entity
func NotFoundError(entity, id string) *RepositoryError {
	return &RepositoryError{
		Op:      "get",
		Entity:  entity,
		ID:      id,
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", entity, id),
	}
}

// MissingRecordsError reports every selected service record id that does not exist.
// The first id is kept in ID for callers that only surface one.
func MissingRecordsError(ids []string) *RepositoryError {
	first := ""
	if len(ids) > 0 {
		first = ids[0]
	}
	return &RepositoryError{
		Op:      "get_by_ids",
		Entity:  EntityServiceRecord,
		ID:      first,
		Err:     ErrNotFound,
		Message: fmt.Sprintf("service records not found: %s", strings.Join(ids, ", ")),
	}
}

// DuplicateError reports an insert that collided with an existing primary key
func DuplicateError(entity, id string) *RepositoryError {
	return &RepositoryError{
		Op:      "create",
		Entity:  entity,
		ID:      id,
		Err:     ErrDuplicateEntry,
		Message: fmt.Sprintf("%s with ID %s already exists", entity, id),
	}
}

// ValidationError reports an entity rejected before it reached the database
func ValidationError(entity, id string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      "validate",
		Entity:  entity,
		ID:      id,
		Err:     fmt.Errorf("%w: %w", ErrValidation, err),
		Message: fmt.Sprintf("validation failed for %s: %v", entity, err),
	}
}

// CorruptRowError reports a stored value that could not be decoded
func CorruptRowError(entity, id string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      "decode",
		Entity:  entity,
		ID:      id,
		Err:     fmt.Errorf("%w: %v", ErrCorruptRow, err),
		Message: fmt.Sprintf("%s %s has an unreadable column: %v", entity, id, err),
	}
}

// TransactionError reports a failed begin, commit or rollback
func TransactionError(op string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Entity:  "transaction",
		Err:     fmt.Errorf("%w: %v", ErrTransaction, err),
		Message: fmt.Sprintf("transaction %s failed: %v", op, err),
	}
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool   { return errors.Is(err, ErrDuplicateEntry) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsTransaction(err error) bool { return errors.Is(err, ErrTransaction) }
func IsCorruptRow(err error) bool  { return errors.Is(err, ErrCorruptRow) }
