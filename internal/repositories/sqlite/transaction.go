package sqlite

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/repositories"
)

type txKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// TransactionManager implements repositories.TransactionManager for SQLite
type TransactionManager struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewTransactionManager creates a new SQLite transaction manager
func NewTransactionManager(db *sql.DB, logger *logrus.Logger) *TransactionManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &TransactionManager{
		db:     db,
		logger: logger,
	}
}

// WithTransaction executes fn within a transaction. A call made with a context that
// already carries a transaction joins it instead of starting a new one.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, tm.db, tm.logger, fn)
}

func runInTx(ctx context.Context, db *sql.DB, logger *logrus.Logger, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to begin transaction")
		return repositories.TransactionError("begin", err)
	}
	logger.Debug("Transaction started")

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.WithError(rbErr).Error("Failed to rollback transaction after panic")
			}
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error("Failed to rollback transaction after error")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("Failed to commit transaction")
		return repositories.TransactionError("commit", err)
	}

	logger.Debug("Transaction committed")
	return nil
}
