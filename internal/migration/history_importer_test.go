package migration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoservice-billing-api/internal/database"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
	"autoservice-billing-api/internal/repositories/sqlite"
)

const jsonExport = `[
  {"id": "LEGACY-1", "vehicle_id": "veh-1", "customer_id": "cust-1", "service_name": "Oil change", "price": 57.49, "performed_date": "2023-05-02", "created_at": "2023-05-02T10:15:00Z"},
  {"id": "LEGACY-2", "vehicle_id": "veh-1", "service_name": "Tire rotation", "service_description": "", "price": "28.74", "performed_date": "2023-05-02T00:00:00Z"},
  {"id": "LEGACY-3", "service_name": "", "price": "10"},
  {"id": "LEGACY-4", "service_name": "Wash", "price": "-5"},
  {"id": "LEGACY-1", "service_name": "Oil change", "price": "57.49"}
]`

const csvExport = `id,vehicle_id,customer_id,service_name,service_description,price,performed_date,created_at
CSV-1,veh-9,,Brake inspection,Front pads,114.98,2022-11-20,
CSV-2,,,Alignment,,abc,2022-11-21,
,veh-9,,Cabin filter,,23.00,,
`

func setupImporter(t *testing.T) (*HistoryImporter, *repositories.RepositoryContainer) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := database.DefaultConnectionConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "import.db")
	cfg.Logger = logger

	cm := database.NewConnectionManager(cfg)
	require.NoError(t, cm.Connect())
	t.Cleanup(func() { cm.Close() })

	repos := sqlite.NewRepositoryContainer(cm.GetDB(), logger)
	return NewHistoryImporter(repos, logger), repos
}

func TestReadRecords_JSON(t *testing.T) {
	rows, err := ReadRecords(strings.NewReader(jsonExport), FormatJSON)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "LEGACY-1", rows[0].ID)
	assert.Equal(t, legacyPrice("57.49"), rows[0].Price)
	assert.Equal(t, legacyPrice("28.74"), rows[1].Price)
}

func TestReadRecords_CSV(t *testing.T) {
	rows, err := ReadRecords(strings.NewReader(csvExport), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "CSV-1", rows[0].ID)
	assert.Equal(t, "Front pads", rows[0].ServiceDescription)
	assert.Equal(t, legacyPrice("114.98"), rows[0].Price)
}

func TestReadRecords_Rejects(t *testing.T) {
	_, err := ReadRecords(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)

	_, err = ReadRecords(strings.NewReader("[]"), Format("xml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("export/history.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = FormatFromPath("history.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromPath("history.xlsx")
	assert.Error(t, err)
}

func TestHistoryImporter_ImportJSON(t *testing.T) {
	importer, repos := setupImporter(t)
	ctx := context.Background()

	rows, err := ReadRecords(strings.NewReader(jsonExport), FormatJSON)
	require.NoError(t, err)

	result, err := importer.Import(ctx, rows, false)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Read)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Invalid)
	assert.Equal(t, 1, result.Existing)
	assert.Len(t, result.Errors, 2)

	record, err := repos.ServiceRecords.GetByID(ctx, "LEGACY-1")
	require.NoError(t, err)
	assert.True(t, record.Price.Equal(decimal.RequireFromString("57.49")))
	assert.Equal(t, "2023-05-02", record.DateKey())
	assert.Equal(t, "veh-1", record.VehicleKey())
	assert.Equal(t, time.Date(2023, 5, 2, 10, 15, 0, 0, time.UTC), record.CreatedAt.UTC())

	second, err := repos.ServiceRecords.GetByID(ctx, "LEGACY-2")
	require.NoError(t, err)
	assert.Nil(t, second.ServiceDescription)
	assert.Nil(t, second.CustomerRef)

	// Re-running skips everything already stored.
	again, err := importer.Import(ctx, rows, false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 3, again.Existing)
}

func TestHistoryImporter_ImportCSV(t *testing.T) {
	importer, repos := setupImporter(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvExport), 0o644))

	format, err := FormatFromPath(path)
	require.NoError(t, err)
	rows, err := ReadFile(path, format)
	require.NoError(t, err)

	result, err := importer.Import(ctx, rows, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Invalid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing id")

	vehicle := "veh-9"
	count, err := repos.ServiceRecords.Count(ctx, models.ServiceRecordFilters{VehicleRef: &vehicle})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestHistoryImporter_DryRunRollsBack(t *testing.T) {
	importer, repos := setupImporter(t)
	ctx := context.Background()

	rows, err := ReadRecords(strings.NewReader(jsonExport), FormatJSON)
	require.NoError(t, err)

	result, err := importer.Import(ctx, rows, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Imported)

	exists, err := repos.ServiceRecords.Exists(ctx, "LEGACY-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHistoryImporter_Validate(t *testing.T) {
	importer, _ := setupImporter(t)

	result, records := importer.Validate([]LegacyRecord{
		{ID: "A", ServiceName: "Wash", Price: "10", PerformedDate: "03/15/2024"},
		{ID: strings.Repeat("x", 65), ServiceName: "Wash", Price: "10"},
		{ID: "B", ServiceName: "Wash", Price: ""},
		{ID: "C", ServiceName: "Wash", Price: "12.50"},
	})

	assert.Equal(t, 3, result.Invalid)
	require.Len(t, records, 1)
	assert.Equal(t, "C", records[0].ID)
	assert.Equal(t, "none", records[0].DateKey())
}
