package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/migrations"
)

// expectedTables lists the tables the service cannot run without
var expectedTables = []string{
	"business_settings",
	"service_records",
	"receipt_snapshots",
	"receipt_snapshot_records",
}

// MigrationManager applies the embedded schema migrations.
//
// golang-migrate closes the *sql.DB it is handed, so every run opens its own
// handle to the database file instead of borrowing the application pool.
type MigrationManager struct {
	dbPath string
	source fs.FS
	db     *sql.DB
	backup bool
	logger *logrus.Logger
}

// NewMigrationManager creates a migration manager for the database at dbPath.
// db is the application pool, used only for schema validation.
func NewMigrationManager(dbPath string, db *sql.DB, logger *logrus.Logger) *MigrationManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &MigrationManager{
		dbPath: dbPath,
		source: migrations.FS,
		db:     db,
		logger: logger,
	}
}

// WithBackup makes RunMigrations and RollbackMigration copy the database file first
func (m *MigrationManager) WithBackup(enabled bool) *MigrationManager {
	m.backup = enabled
	return m
}

// MigrationInfo contains information about a migration
type MigrationInfo struct {
	Version   uint      `json:"version"`
	Dirty     bool      `json:"dirty"`
	Applied   bool      `json:"applied"`
	Timestamp time.Time `json:"timestamp"`
}

// RunMigrations executes all pending migrations
func (m *MigrationManager) RunMigrations() error {
	m.logger.Info("Starting database migrations...")

	if m.backup {
		if err := m.createBackup(); err != nil {
			m.logger.WithError(err).Warn("Failed to create backup before migration")
		}
	}

	mg, err := m.initMigrate()
	if err != nil {
		return fmt.Errorf("failed to initialize migrate: %w", err)
	}
	defer closeMigrate(mg, m.logger)

	currentVersion, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		m.logger.WithField("version", currentVersion).Warn("Database is in dirty state, forcing version")
		if err := mg.Force(int(currentVersion)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	m.logger.WithField("current_version", currentVersion).Info("Current migration version")

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.WithField("new_version", newVersion).Info("Migrations completed successfully")
	return nil
}

// RollbackMigration rolls back the last migration
func (m *MigrationManager) RollbackMigration() error {
	m.logger.Info("Rolling back last migration...")

	if m.backup {
		if err := m.createBackup(); err != nil {
			m.logger.WithError(err).Warn("Failed to create backup before rollback")
		}
	}

	mg, err := m.initMigrate()
	if err != nil {
		return fmt.Errorf("failed to initialize migrate: %w", err)
	}
	defer closeMigrate(mg, m.logger)

	currentVersion, _, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("no migrations to rollback")
		}
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	m.logger.WithField("current_version", currentVersion).Info("Rolling back from version")

	if err := mg.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	newVersion, _, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.WithField("new_version", newVersion).Info("Rollback completed successfully")
	return nil
}

// GetMigrationStatus returns the current migration status
func (m *MigrationManager) GetMigrationStatus() (*MigrationInfo, error) {
	mg, err := m.initMigrate()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrate: %w", err)
	}
	defer closeMigrate(mg, m.logger)

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}

	return &MigrationInfo{
		Version:   version,
		Dirty:     dirty,
		Applied:   err == nil,
		Timestamp: time.Now(),
	}, nil
}

// ValidateSchema checks that every required table exists
func (m *MigrationManager) ValidateSchema() error {
	if m.db == nil {
		return fmt.Errorf("no database handle for schema validation")
	}

	for _, table := range expectedTables {
		var count int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := m.db.QueryRow(query, table).Scan(&count); err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if count == 0 {
			return fmt.Errorf("expected table %s not found", table)
		}
	}

	var fkEnabled int
	if err := m.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}
	if fkEnabled != 1 {
		m.logger.Warn("Foreign keys are not enabled")
	}

	m.logger.Debug("Schema validation completed successfully")
	return nil
}

func (m *MigrationManager) initMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	db, err := sql.Open("sqlite3", DSN(m.dbPath))
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		source.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return mg, nil
}

func closeMigrate(mg *migrate.Migrate, logger *logrus.Logger) {
	srcErr, dbErr := mg.Close()
	if srcErr != nil {
		logger.WithError(srcErr).Warn("Failed to close migration source")
	}
	if dbErr != nil {
		logger.WithError(dbErr).Warn("Failed to close migration connection")
	}
}

// createBackup copies the database file next to itself with a timestamp suffix
func (m *MigrationManager) createBackup() error {
	if m.dbPath == "" || m.dbPath == ":memory:" {
		m.logger.Info("Skipping backup for in-memory database")
		return nil
	}
	if _, err := os.Stat(m.dbPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := fmt.Sprintf("%s.backup_%s", m.dbPath, timestamp)

	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if err := copyFile(m.dbPath, backupPath); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	m.logger.WithField("backup_path", backupPath).Info("Database backup created")
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = destFile.ReadFrom(sourceFile)
	return err
}
