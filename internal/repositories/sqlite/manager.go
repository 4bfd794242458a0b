package sqlite

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/repositories"
)

// NewRepositoryContainer wires every SQLite repository against one database handle
func NewRepositoryContainer(db *sql.DB, logger *logrus.Logger) *repositories.RepositoryContainer {
	if logger == nil {
		logger = logrus.New()
	}

	return &repositories.RepositoryContainer{
		ServiceRecords:   NewServiceRecordRepository(db, logger),
		Snapshots:        NewReceiptSnapshotRepository(db, logger),
		BusinessSettings: NewBusinessSettingsRepository(db, logger),
		Transactions:     NewTransactionManager(db, logger),
	}
}
