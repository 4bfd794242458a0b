package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrFileAlreadyExists  = errors.New("file already exists")
	ErrInvalidKey         = errors.New("invalid storage key")
	ErrStorageUnavailable = errors.New("storage service unavailable")
)

// StorageError carries the failed operation and whether retrying it can help
type StorageError struct {
	Op        string
	Key       string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s failed for key '%s': %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError
func NewStorageError(op, key string, err error, retryable bool) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err, Retryable: retryable}
}

// fsError classifies a filesystem failure. Missing files map to ErrFileNotFound;
// permission problems and cancellation are final; anything else may be transient.
func fsError(op, key string, err error) *StorageError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewStorageError(op, key, ErrFileNotFound, false)
	case errors.Is(err, fs.ErrExist):
		return NewStorageError(op, key, ErrFileAlreadyExists, false)
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return NewStorageError(op, key, err, false)
	default:
		return NewStorageError(op, key, err, true)
	}
}

func IsNotFound(err error) bool      { return errors.Is(err, ErrFileNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrFileAlreadyExists) }

// IsRetryable reports whether the error indicates a transient condition
func IsRetryable(err error) bool {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Retryable
	}
	return errors.Is(err, ErrStorageUnavailable)
}
