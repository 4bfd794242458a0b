// Package migration imports service history exported from a previous system.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

// Format is the export file format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var errDryRun = errors.New("dry run")

// LegacyRecord is one exported service record. JSON and CSV share the column names;
// CSV files need a header row.
type LegacyRecord struct {
	ID                 string      `json:"id" csv:"id"`
	VehicleID          string      `json:"vehicle_id" csv:"vehicle_id"`
	CustomerID         string      `json:"customer_id" csv:"customer_id"`
	ServiceName        string      `json:"service_name" csv:"service_name"`
	ServiceDescription string      `json:"service_description" csv:"service_description"`
	Price              legacyPrice `json:"price" csv:"price"`
	PerformedDate      string      `json:"performed_date" csv:"performed_date"`
	CreatedAt          string      `json:"created_at" csv:"created_at"`
}

// legacyPrice accepts both JSON numbers and quoted strings
type legacyPrice string

func (p *legacyPrice) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		s = ""
	}
	*p = legacyPrice(s)
	return nil
}

// ImportResult summarizes an import run
type ImportResult struct {
	Read     int
	Imported int
	// Existing counts rows skipped because their id is already stored or repeated in the file
	Existing int
	Invalid  int
	DryRun   bool
	Errors   []string
	Warnings []string
}

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("cannot infer format of %s, use json or csv", path)
	}
}

// ReadFile reads an export from disk
func ReadFile(path string, format Format) ([]LegacyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	return ReadRecords(f, format)
}

// ReadRecords decodes an export
func ReadRecords(r io.Reader, format Format) ([]LegacyRecord, error) {
	var rows []LegacyRecord

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("failed to decode JSON export: %w", err)
		}
	case FormatCSV:
		if err := gocsv.Unmarshal(r, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode CSV export: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	return rows, nil
}

// HistoryImporter loads exported service records into the database
type HistoryImporter struct {
	repos  *repositories.RepositoryContainer
	logger *logrus.Logger
}

// NewHistoryImporter creates a new importer
func NewHistoryImporter(repos *repositories.RepositoryContainer, logger *logrus.Logger) *HistoryImporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &HistoryImporter{repos: repos, logger: logger}
}

// Validate converts every row without touching the database. Invalid rows are
// reported in the result and left out of the returned records.
func (h *HistoryImporter) Validate(rows []LegacyRecord) (*ImportResult, []*models.ServiceRecord) {
	result := &ImportResult{Read: len(rows)}
	records := make([]*models.ServiceRecord, 0, len(rows))

	for i, row := range rows {
		record, warning, err := toServiceRecord(row)
		if err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %v", i+1, row.ID, err))
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", i+1, warning))
		}
		records = append(records, record)
	}

	return result, records
}

// Import inserts the valid rows in a single transaction, skipping ids that already exist.
// A dry run performs every check and insert, then rolls back.
func (h *HistoryImporter) Import(ctx context.Context, rows []LegacyRecord, dryRun bool) (*ImportResult, error) {
	result, records := h.Validate(rows)
	result.DryRun = dryRun

	err := h.repos.Transactions.WithTransaction(ctx, func(ctx context.Context) error {
		seen := make(map[string]struct{}, len(records))
		for _, record := range records {
			if _, dup := seen[record.ID]; dup {
				result.Existing++
				continue
			}
			seen[record.ID] = struct{}{}

			exists, err := h.repos.ServiceRecords.Exists(ctx, record.ID)
			if err != nil {
				return fmt.Errorf("failed to check record %s: %w", record.ID, err)
			}
			if exists {
				result.Existing++
				continue
			}

			if err := h.repos.ServiceRecords.Create(ctx, record); err != nil {
				return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
			}
			result.Imported++
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return result, err
	}

	h.logger.WithFields(logrus.Fields{
		"read":     result.Read,
		"imported": result.Imported,
		"existing": result.Existing,
		"invalid":  result.Invalid,
		"dry_run":  dryRun,
	}).Info("Service history import finished")

	return result, nil
}

func toServiceRecord(row LegacyRecord) (*models.ServiceRecord, string, error) {
	raw := strings.TrimSpace(string(row.Price))
	if raw == "" {
		return nil, "", fmt.Errorf("price is required")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("price %q is not a decimal", raw)
	}

	performed, err := parseLegacyDate(row.PerformedDate)
	if err != nil {
		return nil, "", fmt.Errorf("performed_date: %w", err)
	}

	record := models.NewServiceRecord(strings.TrimSpace(row.ServiceName), price, performed)
	record.SetVehicleRef(strings.TrimSpace(row.VehicleID))
	record.SetCustomerRef(strings.TrimSpace(row.CustomerID))
	record.SetDescription(strings.TrimSpace(row.ServiceDescription))

	var warning string
	if id := strings.TrimSpace(row.ID); id != "" {
		if len(id) > 64 {
			return nil, "", fmt.Errorf("id exceeds 64 characters")
		}
		record.ID = id
	} else {
		warning = fmt.Sprintf("missing id, assigned %s", record.ID)
	}

	if created, err := parseLegacyDate(row.CreatedAt); err == nil && !created.IsZero() {
		record.CreatedAt = created.UTC()
	}

	if err := record.Validate(); err != nil {
		return nil, "", err
	}

	return record, warning, nil
}

var legacyDateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
}

// parseLegacyDate accepts the layouts seen in exports; blank yields the zero time
func parseLegacyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}
