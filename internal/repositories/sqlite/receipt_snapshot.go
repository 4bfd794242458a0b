package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

const snapshotColumns = `s.id, s.source, s.line_items_summary, s.line_items, s.price, s.performed_date,
	s.vehicle_ref, s.customer_ref, s.business_info, s.tax_config, s.created_at`

// ReceiptSnapshotRepository implements repositories.ReceiptSnapshotRepository for SQLite
type ReceiptSnapshotRepository struct {
	baseRepository
}

// NewReceiptSnapshotRepository creates a new SQLite receipt snapshot repository
func NewReceiptSnapshotRepository(db *sql.DB, logger *logrus.Logger) *ReceiptSnapshotRepository {
	return &ReceiptSnapshotRepository{
		baseRepository: newBaseRepository(db, "receipt_snapshots", logger),
	}
}

// Create inserts the snapshot and its record links atomically
func (r *ReceiptSnapshotRepository) Create(ctx context.Context, snapshot *models.ReceiptSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return repositories.ValidationError(repositories.EntityReceiptSnapshot, snapshot.ID, err)
	}

	businessInfo, err := snapshot.MarshalBusinessInfo()
	if err != nil {
		return repositories.NewRepositoryError("create", r.table, snapshot.ID, err)
	}
	taxConfig, err := snapshot.MarshalTaxConfig()
	if err != nil {
		return repositories.NewRepositoryError("create", r.table, snapshot.ID, err)
	}
	lineItems, err := snapshot.MarshalLineItems()
	if err != nil {
		return repositories.NewRepositoryError("create", r.table, snapshot.ID, err)
	}

	return runInTx(ctx, r.db, r.logger, func(ctx context.Context) error {
		query := `
			INSERT INTO receipt_snapshots (
				id, source, line_items_summary, line_items, price, performed_date,
				vehicle_ref, customer_ref, business_info, tax_config, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := r.executeExec(ctx, "create", query,
			snapshot.ID,
			string(snapshot.Source),
			snapshot.LineItemsSummary,
			lineItems,
			snapshot.Price.String(),
			dateValue(snapshot.PerformedDate),
			nullableString(snapshot.VehicleRef),
			nullableString(snapshot.CustomerRef),
			businessInfo,
			taxConfig,
			snapshot.CreatedAt,
		)
		if err != nil {
			return r.writeError("create", snapshot.ID, err)
		}

		for i, recordID := range snapshot.ServiceRecordIDs {
			_, err := r.executeExec(ctx, "link",
				`INSERT OR IGNORE INTO receipt_snapshot_records (snapshot_id, service_record_id, position) VALUES (?, ?, ?)`,
				snapshot.ID, recordID, i,
			)
			if err != nil {
				return repositories.NewRepositoryError("link", r.table, snapshot.ID, err)
			}
		}

		r.logger.WithFields(logrus.Fields{
			"snapshot_id": snapshot.ID,
			"source":      snapshot.Source,
			"records":     len(snapshot.ServiceRecordIDs),
		}).Debug("Receipt snapshot created")
		return nil
	})
}

// GetByID retrieves a snapshot and the IDs of the records it covers
func (r *ReceiptSnapshotRepository) GetByID(ctx context.Context, id string) (*models.ReceiptSnapshot, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + snapshotColumns + ` FROM receipt_snapshots s WHERE s.id = ?`

	snapshot, err := r.scanSnapshot(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NotFoundError(repositories.EntityReceiptSnapshot, id)
		}
		var repoErr *repositories.RepositoryError
		if errors.As(err, &repoErr) {
			return nil, err
		}
		return nil, repositories.NewRepositoryError("get", r.table, id, err)
	}

	links, err := r.loadLinks(ctx, []string{snapshot.ID})
	if err != nil {
		return nil, err
	}
	snapshot.ServiceRecordIDs = links[snapshot.ID]

	return snapshot, nil
}

// FindByServiceRecordIDs maps each covered record ID to the newest snapshot covering it
func (r *ReceiptSnapshotRepository) FindByServiceRecordIDs(ctx context.Context, recordIDs []string) (map[string]*models.ReceiptSnapshot, error) {
	result := make(map[string]*models.ReceiptSnapshot)
	if len(recordIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT l.service_record_id, ` + snapshotColumns + `
		FROM receipt_snapshot_records l
		JOIN receipt_snapshots s ON s.id = l.snapshot_id
		WHERE l.service_record_id IN (` + placeholders(len(recordIDs)) + `)
		ORDER BY s.created_at DESC, s.rowid DESC`

	rows, err := r.executeQuery(ctx, "find_by_records", query, stringArgs(recordIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.ReceiptSnapshot)
	for rows.Next() {
		var recordID string
		snapshot, err := r.scanSnapshotWith(rows, &recordID)
		if err != nil {
			return nil, repositories.NewRepositoryError("find_by_records", r.table, "", err)
		}
		if _, done := result[recordID]; done {
			continue
		}
		if existing, ok := byID[snapshot.ID]; ok {
			snapshot = existing
		} else {
			byID[snapshot.ID] = snapshot
		}
		result[recordID] = snapshot
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("find_by_records", r.table, "", err)
	}

	if len(byID) > 0 {
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		links, err := r.loadLinks(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, snapshot := range byID {
			snapshot.ServiceRecordIDs = links[id]
		}
	}

	return result, nil
}

func (r *ReceiptSnapshotRepository) loadLinks(ctx context.Context, snapshotIDs []string) (map[string][]string, error) {
	query := `
		SELECT snapshot_id, service_record_id
		FROM receipt_snapshot_records
		WHERE snapshot_id IN (` + placeholders(len(snapshotIDs)) + `)
		ORDER BY snapshot_id, position`

	rows, err := r.executeQuery(ctx, "load_links", query, stringArgs(snapshotIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string][]string, len(snapshotIDs))
	for _, id := range snapshotIDs {
		links[id] = []string{}
	}
	for rows.Next() {
		var snapshotID, recordID string
		if err := rows.Scan(&snapshotID, &recordID); err != nil {
			return nil, repositories.NewRepositoryError("load_links", r.table, "", err)
		}
		links[snapshotID] = append(links[snapshotID], recordID)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("load_links", r.table, "", err)
	}
	return links, nil
}

func (r *ReceiptSnapshotRepository) scanSnapshot(row rowScanner) (*models.ReceiptSnapshot, error) {
	return r.scanSnapshotWith(row)
}

// scanSnapshotWith scans the leading extra columns into prefix, then the snapshot columns
func (r *ReceiptSnapshotRepository) scanSnapshotWith(row rowScanner, prefix ...interface{}) (*models.ReceiptSnapshot, error) {
	var (
		snapshot      models.ReceiptSnapshot
		source        string
		lineItems     string
		price         decimal.Decimal
		performedDate sql.NullString
		vehicleRef    sql.NullString
		customerRef   sql.NullString
		businessInfo  string
		taxConfig     string
	)

	dest := append(prefix,
		&snapshot.ID,
		&source,
		&snapshot.LineItemsSummary,
		&lineItems,
		&price,
		&performedDate,
		&vehicleRef,
		&customerRef,
		&businessInfo,
		&taxConfig,
		&snapshot.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	snapshot.Source = models.SnapshotSource(source)
	snapshot.Price = price
	snapshot.VehicleRef = stringPtr(vehicleRef)
	snapshot.CustomerRef = stringPtr(customerRef)

	date, err := parseStoredDate(performedDate)
	if err != nil {
		return nil, repositories.CorruptRowError(repositories.EntityReceiptSnapshot, snapshot.ID, err)
	}
	snapshot.PerformedDate = date

	if err := snapshot.UnmarshalStored(businessInfo, taxConfig, lineItems); err != nil {
		return nil, repositories.CorruptRowError(repositories.EntityReceiptSnapshot, snapshot.ID, err)
	}
	snapshot.ServiceRecordIDs = []string{}

	return &snapshot, nil
}
