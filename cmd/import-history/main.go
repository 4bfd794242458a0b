package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/config"
	"autoservice-billing-api/internal/database"
	"autoservice-billing-api/internal/migration"
	"autoservice-billing-api/internal/repositories/sqlite"
)

func main() {
	var (
		dbPath  = flag.String("db", config.GetEnv("DB_PATH", "./data/autoservice.db"), "Database file path")
		input   = flag.String("input", "", "Exported service history (.json or .csv)")
		format  = flag.String("format", "", "Input format: json or csv (default: from file extension)")
		action  = flag.String("action", "import", "Action: import, validate")
		dryRun  = flag.Bool("dry-run", false, "Run the import inside a transaction and roll it back")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *input == "" {
		logger.Fatal("-input is required")
	}

	inputFormat := migration.Format(*format)
	if inputFormat == "" {
		var err error
		if inputFormat, err = migration.FormatFromPath(*input); err != nil {
			logger.WithError(err).Fatal("Unknown input format")
		}
	}

	rows, err := migration.ReadFile(*input, inputFormat)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read export")
	}

	logger.WithFields(logrus.Fields{
		"input":   *input,
		"format":  inputFormat,
		"rows":    len(rows),
		"action":  *action,
		"dry_run": *dryRun,
	}).Info("Starting service history import")

	switch *action {
	case "validate":
		result, _ := migration.NewHistoryImporter(nil, logger).Validate(rows)
		printResult(result)
		if result.Invalid > 0 {
			logger.WithField("invalid", result.Invalid).Fatal("Export contains invalid rows")
		}
	case "import":
		absDBPath, err := filepath.Abs(*dbPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to get absolute database path")
		}

		cfg := database.DefaultConnectionConfig()
		cfg.DatabasePath = absDBPath
		cfg.Logger = logger
		cm := database.NewConnectionManager(cfg)
		if err := cm.Connect(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer cm.Close()

		importer := migration.NewHistoryImporter(sqlite.NewRepositoryContainer(cm.GetDB(), logger), logger)
		result, err := importer.Import(context.Background(), rows, *dryRun)
		if err != nil {
			logger.WithError(err).Fatal("Import failed, nothing was written")
		}
		printResult(result)
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: import, validate")
	}
}

func printResult(result *migration.ImportResult) {
	fmt.Printf("Rows read:        %d\n", result.Read)
	fmt.Printf("Imported:         %d\n", result.Imported)
	fmt.Printf("Already present:  %d\n", result.Existing)
	fmt.Printf("Invalid:          %d\n", result.Invalid)
	if result.DryRun {
		fmt.Println("Dry run: changes rolled back")
	}
	for _, w := range result.Warnings {
		fmt.Println("  warning:", w)
	}
	for _, e := range result.Errors {
		fmt.Println("  error:", e)
	}
}
