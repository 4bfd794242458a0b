package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/config"
	"autoservice-billing-api/internal/database"
)

func main() {
	var (
		dbPath  = flag.String("db", config.GetEnv("DB_PATH", "./data/autoservice.db"), "Database file path")
		action  = flag.String("action", "up", "Migration action: up, down, status, validate")
		backup  = flag.Bool("backup", config.GetEnvAsBool("DB_BACKUP_ENABLED", false), "Copy the database file before migrating")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"action":  *action,
	}).Info("Starting migration tool")

	// Migrations are applied explicitly below, never on connect.
	connectionManager := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:        absDBPath,
		MaxOpenConns:        1,
		MaxIdleConns:        1,
		BackupBeforeMigrate: *backup,
		Logger:              logger,
	})
	if err := connectionManager.Connect(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer connectionManager.Close()

	migrationManager := connectionManager.GetMigrationManager()

	switch *action {
	case "up":
		err = migrationManager.RunMigrations()
	case "down":
		err = migrationManager.RollbackMigration()
	case "status":
		err = showMigrationStatus(migrationManager)
	case "validate":
		err = migrationManager.ValidateSchema()
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: up, down, status, validate")
	}

	if err != nil {
		logger.WithError(err).WithField("action", *action).Fatal("Migration tool failed")
	}

	logger.Info("Migration tool completed successfully")
}

func showMigrationStatus(mm *database.MigrationManager) error {
	status, err := mm.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d\n", status.Version)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)
	fmt.Printf("  Checked: %s\n", status.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
