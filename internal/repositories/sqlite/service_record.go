package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

const serviceRecordColumns = `id, vehicle_ref, customer_ref, service_name, service_description,
	price, performed_date, created_at`

// ServiceRecordRepository implements repositories.ServiceRecordRepository for SQLite
type ServiceRecordRepository struct {
	baseRepository
}

// NewServiceRecordRepository creates a new SQLite service record repository
func NewServiceRecordRepository(db *sql.DB, logger *logrus.Logger) *ServiceRecordRepository {
	return &ServiceRecordRepository{
		baseRepository: newBaseRepository(db, "service_records", logger),
	}
}

// Create inserts a new service record
func (r *ServiceRecordRepository) Create(ctx context.Context, record *models.ServiceRecord) error {
	if err := record.Validate(); err != nil {
		return repositories.ValidationError(repositories.EntityServiceRecord, record.ID, err)
	}

	query := `
		INSERT INTO service_records (` + serviceRecordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		record.ID,
		nullableString(record.VehicleRef),
		nullableString(record.CustomerRef),
		record.ServiceName,
		nullableString(record.ServiceDescription),
		record.Price.String(),
		dateValue(record.PerformedDate),
		record.CreatedAt,
	)
	if err != nil {
		return r.writeError("create", record.ID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"service_record_id": record.ID,
		"price":             record.Price.String(),
	}).Debug("Service record created")

	return nil
}

// CreateBatch inserts several records in one transaction
func (r *ServiceRecordRepository) CreateBatch(ctx context.Context, records []*models.ServiceRecord) error {
	return runInTx(ctx, r.db, r.logger, func(ctx context.Context) error {
		for _, record := range records {
			if err := r.Create(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a service record by its ID
func (r *ServiceRecordRepository) GetByID(ctx context.Context, id string) (*models.ServiceRecord, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + serviceRecordColumns + ` FROM service_records WHERE id = ?`

	record, err := r.scanRecord(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NotFoundError(repositories.EntityServiceRecord, id)
		}
		return nil, repositories.NewRepositoryError("get", r.table, id, err)
	}

	return record, nil
}

// GetByIDs retrieves the records with the given IDs, in the order requested.
// Repeated IDs are returned once and unknown IDs are skipped.
func (r *ServiceRecordRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.ServiceRecord, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []*models.ServiceRecord{}, nil
	}

	query := `SELECT ` + serviceRecordColumns + ` FROM service_records WHERE id IN (` + placeholders(len(unique)) + `)`

	rows, err := r.executeQuery(ctx, "get_by_ids", query, stringArgs(unique)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.ServiceRecord, len(unique))
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("get_by_ids", r.table, "", err)
		}
		byID[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("get_by_ids", r.table, "", err)
	}

	records := make([]*models.ServiceRecord, 0, len(byID))
	for _, id := range unique {
		if record, ok := byID[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// List retrieves records matching the filters, most recent service date first.
// Records without a date sort last.
func (r *ServiceRecordRepository) List(ctx context.Context, filters models.ServiceRecordFilters) ([]*models.ServiceRecord, error) {
	where, args := buildServiceRecordFilter(filters)

	limit := filters.Limit
	if limit <= 0 {
		limit = models.DefaultListLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + serviceRecordColumns + ` FROM service_records ` + where + `
		ORDER BY performed_date IS NULL, performed_date DESC, created_at DESC, id
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.executeQuery(ctx, "list", query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.ServiceRecord, 0)
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", r.table, "", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", r.table, "", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters
func (r *ServiceRecordRepository) Count(ctx context.Context, filters models.ServiceRecordFilters) (int64, error) {
	where, args := buildServiceRecordFilter(filters)
	query := `SELECT COUNT(*) FROM service_records ` + where

	var count int64
	if err := r.executeQueryRow(ctx, "count", query, args...).Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", r.table, "", err)
	}
	return count, nil
}

// Delete removes a service record. Snapshots that reference it keep their frozen copy.
func (r *ServiceRecordRepository) Delete(ctx context.Context, id string) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	result, err := r.executeExec(ctx, "delete", `DELETE FROM service_records WHERE id = ?`, id)
	if err != nil {
		return repositories.NewRepositoryError("delete", r.table, id, err)
	}

	return r.checkRowsAffected(result, "delete", id)
}

// Exists checks if a service record exists
func (r *ServiceRecordRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, id)
}

func (r *ServiceRecordRepository) scanRecord(row rowScanner) (*models.ServiceRecord, error) {
	var (
		record        models.ServiceRecord
		vehicleRef    sql.NullString
		customerRef   sql.NullString
		description   sql.NullString
		price         decimal.Decimal
		performedDate sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&vehicleRef,
		&customerRef,
		&record.ServiceName,
		&description,
		&price,
		&performedDate,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.VehicleRef = stringPtr(vehicleRef)
	record.CustomerRef = stringPtr(customerRef)
	record.ServiceDescription = stringPtr(description)
	record.Price = price

	date, err := parseStoredDate(performedDate)
	if err != nil {
		return nil, repositories.CorruptRowError(repositories.EntityServiceRecord, record.ID, err)
	}
	record.PerformedDate = date

	return &record, nil
}

func buildServiceRecordFilter(filters models.ServiceRecordFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filters.CustomerRef != nil && *filters.CustomerRef != "" {
		conditions = append(conditions, "customer_ref = ?")
		args = append(args, *filters.CustomerRef)
	}
	if filters.VehicleRef != nil && *filters.VehicleRef != "" {
		conditions = append(conditions, "vehicle_ref = ?")
		args = append(args, *filters.VehicleRef)
	}
	if filters.From != nil {
		conditions = append(conditions, "performed_date >= ?")
		args = append(args, filters.From.Format(models.DateLayout))
	}
	if filters.To != nil {
		conditions = append(conditions, "performed_date <= ?")
		args = append(args, filters.To.Format(models.DateLayout))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
