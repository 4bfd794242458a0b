package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories need
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// baseRepository provides common functionality for all SQLite repositories
type baseRepository struct {
	db     *sql.DB
	table  string
	logger *logrus.Logger
}

func newBaseRepository(db *sql.DB, table string, logger *logrus.Logger) baseRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return baseRepository{
		db:     db,
		table:  table,
		logger: logger,
	}
}

// conn returns the transaction carried by ctx, or the pool when there is none.
// The pool holds a single connection, so a query issued outside an open
// transaction would wait for it forever.
func (r *baseRepository) conn(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// exists checks if a row with the given ID exists
func (r *baseRepository) exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", r.table)

	var exists int
	err := r.executeQueryRow(ctx, "exists", query, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, repositories.NewRepositoryError("exists", r.table, id, err)
	}

	return exists == 1, nil
}

// logQuery logs a query with its execution time
func (r *baseRepository) logQuery(operation string, query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"table":     r.table,
		"query":     strings.Join(strings.Fields(query), " "),
		"args":      len(args),
		"duration":  duration,
	}

	if err != nil {
		fields["error"] = err.Error()
		r.logger.WithFields(fields).Error("Query failed")
	} else {
		r.logger.WithFields(fields).Debug("Query executed")
	}
}

// executeQuery executes a query and logs the result
func (r *baseRepository) executeQuery(ctx context.Context, operation, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	r.logQuery(operation, query, args, time.Since(start), err)

	if err != nil {
		return nil, repositories.NewRepositoryError(operation, r.table, "", err)
	}

	return rows, nil
}

// executeQueryRow executes a single-row query and logs the result
func (r *baseRepository) executeQueryRow(ctx context.Context, operation, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.conn(ctx).QueryRowContext(ctx, query, args...)
	r.logQuery(operation, query, args, time.Since(start), nil)

	return row
}

// executeExec executes a non-query statement and logs the result
func (r *baseRepository) executeExec(ctx context.Context, operation, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	r.logQuery(operation, query, args, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

// checkRowsAffected returns a not-found error when the statement touched nothing
func (r *baseRepository) checkRowsAffected(result sql.Result, operation, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError(operation, r.table, id, err)
	}

	if rowsAffected == 0 {
		return repositories.NotFoundError(r.table, id)
	}

	return nil
}

// validateID validates that an ID is not empty
func (r *baseRepository) validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return repositories.NewRepositoryError("validate", r.table, id, repositories.ErrInvalidID)
	}
	return nil
}

// writeError classifies a failed insert or update
func (r *baseRepository) writeError(operation, id string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return repositories.DuplicateError(r.table, id)
	}
	return repositories.NewRepositoryError(operation, r.table, id, err)
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// nullableString maps a nil pointer to SQL NULL
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// nullableDecimal maps a nil pointer to SQL NULL and stores the exact decimal text otherwise
func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	v := nd.Decimal
	return &v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// dateValue stores a service date as YYYY-MM-DD, or NULL for the zero time
func dateValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(models.DateLayout)
}

func parseStoredDate(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return time.Time{}, nil
	}
	// Rows written by older tools may carry a full timestamp
	value := ns.String
	if len(value) > len(models.DateLayout) {
		value = value[:len(models.DateLayout)]
	}
	return models.ParseDate(value)
}
