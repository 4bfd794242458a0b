package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/repositories"
)

type txMarker struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// fakeRecordRepo is an in-memory ServiceRecordRepository
type fakeRecordRepo struct {
	mu        sync.Mutex
	records   map[string]*models.ServiceRecord
	order     []string
	createErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]*models.ServiceRecord{}}
}

func (f *fakeRecordRepo) Create(ctx context.Context, record *models.ServiceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(record)
}

func (f *fakeRecordRepo) insert(record *models.ServiceRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.records[record.ID]; ok {
		return repositories.DuplicateError("service_records", record.ID)
	}
	copied := *record
	f.records[record.ID] = &copied
	f.order = append(f.order, record.ID)
	return nil
}

func (f *fakeRecordRepo) CreateBatch(ctx context.Context, records []*models.ServiceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		if err := f.insert(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, id string) (*models.ServiceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, repositories.NotFoundError("service_records", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRecordRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.ServiceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ServiceRecord
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) matching(filters models.ServiceRecordFilters) []*models.ServiceRecord {
	var out []*models.ServiceRecord
	for _, id := range f.order {
		r, ok := f.records[id]
		if !ok {
			continue
		}
		if filters.CustomerRef != nil && (r.CustomerRef == nil || *r.CustomerRef != *filters.CustomerRef) {
			continue
		}
		if filters.VehicleRef != nil && (r.VehicleRef == nil || *r.VehicleRef != *filters.VehicleRef) {
			continue
		}
		if filters.From != nil && r.PerformedDate.Before(*filters.From) {
			continue
		}
		if filters.To != nil && r.PerformedDate.After(*filters.To) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f *fakeRecordRepo) List(ctx context.Context, filters models.ServiceRecordFilters) ([]*models.ServiceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(filters)
	if filters.Offset >= len(all) {
		return []*models.ServiceRecord{}, nil
	}
	end := len(all)
	if filters.Limit > 0 && filters.Offset+filters.Limit < end {
		end = filters.Offset + filters.Limit
	}
	return all[filters.Offset:end], nil
}

func (f *fakeRecordRepo) Count(ctx context.Context, filters models.ServiceRecordFilters) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filters))), nil
}

func (f *fakeRecordRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return repositories.NotFoundError("service_records", id)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRecordRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok, nil
}

func (f *fakeRecordRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeTransactions rolls the record repo back when fn fails
type fakeTransactions struct {
	records   *fakeRecordRepo
	commits   int
	rollbacks int
}

func (f *fakeTransactions) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.records.mu.Lock()
	saved := make(map[string]*models.ServiceRecord, len(f.records.records))
	for k, v := range f.records.records {
		saved[k] = v
	}
	savedOrder := append([]string(nil), f.records.order...)
	f.records.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		f.records.mu.Lock()
		f.records.records = saved
		f.records.order = savedOrder
		f.records.mu.Unlock()
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// fakeSnapshotRepo is an in-memory ReceiptSnapshotRepository
type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*models.ReceiptSnapshot
	order     []string
	createErr error
	onCreate  func(ctx context.Context, snapshot *models.ReceiptSnapshot)
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: map[string]*models.ReceiptSnapshot{}}
}

func (f *fakeSnapshotRepo) Create(ctx context.Context, snapshot *models.ReceiptSnapshot) error {
	if f.onCreate != nil {
		f.onCreate(ctx, snapshot)
	}
	if f.createErr != nil {
		return f.createErr
	}
	if err := snapshot.Validate(); err != nil {
		return repositories.ValidationError("receipt_snapshots", snapshot.ID, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[snapshot.ID] = snapshot
	f.order = append(f.order, snapshot.ID)
	return nil
}

func (f *fakeSnapshotRepo) GetByID(ctx context.Context, id string) (*models.ReceiptSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[id]
	if !ok {
		return nil, repositories.NotFoundError("receipt_snapshots", id)
	}
	return s, nil
}

func (f *fakeSnapshotRepo) FindByServiceRecordIDs(ctx context.Context, recordIDs []string) (map[string]*models.ReceiptSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range recordIDs {
		wanted[id] = true
	}
	out := map[string]*models.ReceiptSnapshot{}
	for _, sid := range f.order {
		s := f.snapshots[sid]
		for _, rid := range s.ServiceRecordIDs {
			if wanted[rid] {
				out[rid] = s
			}
		}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

// fakeSettingsRepo holds the singleton row
type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *models.BusinessSettings
	getErr   error
	gets     int
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*models.BusinessSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.settings == nil {
		return nil, repositories.NotFoundError(repositories.EntityBusinessSettings, "1")
	}
	copied := *f.settings
	return &copied, nil
}

func (f *fakeSettingsRepo) CreateOrUpdate(ctx context.Context, settings *models.BusinessSettings) error {
	if err := settings.Validate(); err != nil {
		return repositories.ValidationError(repositories.EntityBusinessSettings, "1", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *settings
	f.settings = &copied
	return nil
}

func (f *fakeSettingsRepo) Exists(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings != nil, nil
}

func (f *fakeSettingsRepo) set(settings *models.BusinessSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = settings
}

var errDiskFull = errors.New("disk I/O error")

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func strPtr(s string) *string {
	return &s
}

func quebecSettings() *models.BusinessSettings {
	s := models.NewBusinessSettings("Garage Nord", "12 Rue Principale", "514-555-0100")
	s.TaxNumbers = []models.TaxNumber{{Label: "GST", Value: "123456789RT0001"}}
	s.FederalTaxRate = dp("5")
	s.ProvincialTaxRate = dp("9.975")
	return s
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", field, got.String(), want)
	}
}

func testLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

type harness struct {
	records      *fakeRecordRepo
	snapshots    *fakeSnapshotRepo
	settingsRepo *fakeSettingsRepo
	tx           *fakeTransactions
	logger       *logrus.Logger
	hook         *test.Hook
	container    *ServiceContainer
}

func newHarness(t *testing.T, cfg *ServiceConfig) *harness {
	t.Helper()

	h := &harness{
		records:      newFakeRecordRepo(),
		snapshots:    newFakeSnapshotRepo(),
		settingsRepo: &fakeSettingsRepo{settings: quebecSettings()},
	}
	h.tx = &fakeTransactions{records: h.records}
	h.logger, h.hook = testLogger()

	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	cfg.Logger = h.logger

	container, err := NewServiceContainer(&repositories.RepositoryContainer{
		ServiceRecords:   h.records,
		Snapshots:        h.snapshots,
		BusinessSettings: h.settingsRepo,
		Transactions:     h.tx,
	}, cfg)
	if err != nil {
		t.Fatalf("NewServiceContainer: %v", err)
	}
	h.container = container
	return h
}
