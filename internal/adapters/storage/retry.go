package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryConfig configures retry behavior for storage operations
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the retry policy used for receipt archiving
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

func (c *RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialDelay
	exp.MaxInterval = c.MaxDelay
	exp.Multiplier = c.Multiplier
	exp.MaxElapsedTime = 0

	retries := 0
	if c.MaxAttempts > 1 {
		retries = c.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// WithRetry runs op until it succeeds, fails with a non-retryable error,
// exhausts the attempts, or ctx is done
func WithRetry(ctx context.Context, config *RetryConfig, logger *logrus.Logger, op func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	operation := func() error {
		err := op(ctx)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.WithError(err).WithField("retry_in", wait).Debug("Retrying storage operation")
		}
	}

	return backoff.RetryNotify(operation, config.newBackOff(ctx), notify)
}

// RetryableFileStorage wraps a FileStorage with retry logic
type RetryableFileStorage struct {
	storage FileStorage
	config  *RetryConfig
	logger  *logrus.Logger
}

// NewRetryableFileStorage creates a new RetryableFileStorage
func NewRetryableFileStorage(storage FileStorage, config *RetryConfig, logger *logrus.Logger) *RetryableFileStorage {
	if config == nil {
		config = DefaultRetryConfig()
	}

	return &RetryableFileStorage{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Store implements FileStorage.Store with retry logic
func (r *RetryableFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	return WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		return r.storage.Store(ctx, key, data, opts)
	})
}

// Retrieve implements FileStorage.Retrieve with retry logic
func (r *RetryableFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		data, err := r.storage.Retrieve(ctx, key)
		result = data
		return err
	})
	return result, err
}

// Delete implements FileStorage.Delete with retry logic
func (r *RetryableFileStorage) Delete(ctx context.Context, key string) error {
	return WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		return r.storage.Delete(ctx, key)
	})
}

// Exists implements FileStorage.Exists with retry logic
func (r *RetryableFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	var result bool
	err := WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		exists, err := r.storage.Exists(ctx, key)
		result = exists
		return err
	})
	return result, err
}

// GetMetadata implements FileStorage.GetMetadata with retry logic
func (r *RetryableFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	var result *FileMetadata
	err := WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		meta, err := r.storage.GetMetadata(ctx, key)
		result = meta
		return err
	})
	return result, err
}

// List implements FileStorage.List with retry logic
func (r *RetryableFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	var result []FileMetadata
	err := WithRetry(ctx, r.config, r.logger, func(ctx context.Context) error {
		files, err := r.storage.List(ctx, prefix)
		result = files
		return err
	})
	return result, err
}

// Close implements FileStorage.Close
func (r *RetryableFileStorage) Close() error {
	return r.storage.Close()
}
