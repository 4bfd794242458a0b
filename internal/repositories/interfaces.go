package repositories

import (
	"context"

	"autoservice-billing-api/internal/models"
)

// ServiceRecordRepository stores historical charges. Records are append-only: there is no Update.
type ServiceRecordRepository interface {
	// Create inserts a new record
	Create(ctx context.Context, record *models.ServiceRecord) error

	// CreateBatch inserts several records; callers wrap it in a transaction for atomicity
	CreateBatch(ctx context.Context, records []*models.ServiceRecord) error

	// GetByID retrieves a record by its ID
	GetByID(ctx context.Context, id string) (*models.ServiceRecord, error)

	// GetByIDs retrieves the records with the given IDs in the order requested.
	// Unknown IDs are skipped; callers compare lengths to detect them.
	GetByIDs(ctx context.Context, ids []string) ([]*models.ServiceRecord, error)

	// List retrieves records matching the filters, newest service date first
	List(ctx context.Context, filters models.ServiceRecordFilters) ([]*models.ServiceRecord, error)

	// Count returns the number of records matching the filters, ignoring limit and offset
	Count(ctx context.Context, filters models.ServiceRecordFilters) (int64, error)

	// Delete removes a record
	Delete(ctx context.Context, id string) error

	// Exists checks if a record with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)
}

// ReceiptSnapshotRepository stores immutable receipt snapshots
type ReceiptSnapshotRepository interface {
	// Create inserts a snapshot together with its links to service records
	Create(ctx context.Context, snapshot *models.ReceiptSnapshot) error

	// GetByID retrieves a snapshot by its ID
	GetByID(ctx context.Context, id string) (*models.ReceiptSnapshot, error)

	// FindByServiceRecordIDs returns, for each given record ID covered by a snapshot,
	// the most recent snapshot covering it. Records without a snapshot are absent from the map.
	FindByServiceRecordIDs(ctx context.Context, recordIDs []string) (map[string]*models.ReceiptSnapshot, error)
}

// BusinessSettingsRepository manages the singleton business settings row
type BusinessSettingsRepository interface {
	// Get retrieves the settings
	Get(ctx context.Context) (*models.BusinessSettings, error)

	// CreateOrUpdate creates or replaces the settings
	CreateOrUpdate(ctx context.Context, settings *models.BusinessSettings) error

	// Exists checks if the settings row exists
	Exists(ctx context.Context) (bool, error)
}

// RepositoryContainer groups the repositories used by the service layer
type RepositoryContainer struct {
	ServiceRecords   ServiceRecordRepository
	Snapshots        ReceiptSnapshotRepository
	BusinessSettings BusinessSettingsRepository
	Transactions     TransactionManager
}
