package repositories

import (
	"context"
)

// TransactionManager runs units of work atomically.
//
// The context handed to fn carries the transaction; repository calls made with that
// context run inside it. Returning an error or panicking rolls everything back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
