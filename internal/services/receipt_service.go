package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/adapters/storage"
	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/render"
	"autoservice-billing-api/internal/repositories"
)

// receiptService implements the ReceiptService interface
type receiptService struct {
	records   repositories.ServiceRecordRepository
	snapshots repositories.ReceiptSnapshotRepository
	settings  SettingsService
	archive   storage.FileStorage
	renderOpt render.Options
	metrics   *metrics.Metrics
	validator *validator.Validate
	logger    *logrus.Logger
	now       func() time.Time
}

// ReceiptServiceOptions holds the optional collaborators of the receipt service
type ReceiptServiceOptions struct {
	// Archive stores every rendered document when set
	Archive      storage.FileStorage
	ThermalWidth int
	Metrics      *metrics.Metrics
	Logger       *logrus.Logger
}

// NewReceiptService creates a new receipt service instance
func NewReceiptService(
	records repositories.ServiceRecordRepository,
	snapshots repositories.ReceiptSnapshotRepository,
	settings SettingsService,
	opts ReceiptServiceOptions,
) ReceiptService {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &receiptService{
		records:   records,
		snapshots: snapshots,
		settings:  settings,
		archive:   opts.Archive,
		renderOpt: render.Options{ThermalWidth: opts.ThermalWidth},
		metrics:   opts.Metrics,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// BuildReceipt consolidates the selected records into one receipt section per (vehicle, date)
// and decomposes each section's charged total for display.
//
// With the snapshot tax source each record is decomposed with the configuration frozen by the
// sale that produced it; records no snapshot covers fall back to the current settings and the
// section reports it. The current tax source ignores snapshots entirely.
func (s *receiptService) BuildReceipt(ctx context.Context, req *BuildReceiptRequest) (*models.PrintableReceipt, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: build receipt request cannot be nil", ErrInvalidInput)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	source := req.TaxSource
	if source == "" {
		source = pricing.TaxSourceSnapshot
	}

	ids := lo.Uniq(req.ServiceRecordIDs)

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	current := pricing.ResolveTaxConfig(settings.RawTaxSettings())

	receipt := &models.PrintableReceipt{
		BusinessInfo: settings.BusinessInfo(),
		Groups:       []models.PrintableGroup{},
		GeneratedAt:  s.now().UTC(),
	}
	if len(ids) == 0 {
		return receipt, nil
	}

	records, err := s.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load service records: %w", err)
	}
	if len(records) != len(ids) {
		found := lo.SliceToMap(records, func(r *models.ServiceRecord) (string, bool) { return r.ID, true })
		missing := lo.Reject(ids, func(id string, _ int) bool { return found[id] })
		return nil, repositories.MissingRecordsError(missing)
	}

	groups, err := pricing.Consolidate(records, ids)
	if err != nil {
		return nil, err
	}

	covering := map[string]*models.ReceiptSnapshot{}
	if source == pricing.TaxSourceSnapshot {
		covering, err = s.snapshots.FindByServiceRecordIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load receipt snapshots: %w", err)
		}
	}
	configs := lo.MapValues(covering, func(snap *models.ReceiptSnapshot, _ string) models.TaxConfiguration {
		return snap.TaxConfigAtTimeOfSale
	})

	for _, group := range groups {
		breakdown, err := pricing.DecomposeGroup(group, configs, current)
		if err != nil {
			return nil, err
		}
		receipt.Groups = append(receipt.Groups, printableGroup(group, breakdown))
	}

	if snap, ok := soleSnapshot(ids, covering); ok {
		receipt.SnapshotID = snap.ID
	}
	if info, ok := agreedBusinessInfo(ids, covering); ok {
		receipt.BusinessInfo = info
	}

	return receipt, nil
}

// Print builds and renders a consolidated receipt
func (s *receiptService) Print(ctx context.Context, req *PrintRequest) (*RenderedReceipt, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: print request cannot be nil", ErrInvalidInput)
	}

	format, err := render.ParseFormat(string(req.Format))
	if err != nil {
		return nil, invalidField("format", err)
	}

	receipt, err := s.BuildReceipt(ctx, &req.BuildReceiptRequest)
	if err != nil {
		return nil, err
	}

	return s.renderAndArchive(ctx, receipt, format, req.ServiceRecordIDs)
}

// GetSnapshot retrieves a receipt snapshot by ID
func (s *receiptService) GetSnapshot(ctx context.Context, id string) (*models.ReceiptSnapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt snapshot: %w", err)
	}
	return snapshot, nil
}

// PrintSnapshot reprints a sale from its snapshot alone, whatever the current settings are
func (s *receiptService) PrintSnapshot(ctx context.Context, id string, format render.Format) (*RenderedReceipt, error) {
	format, err := render.ParseFormat(string(format))
	if err != nil {
		return nil, invalidField("format", err)
	}

	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt, err := snapshotReceipt(snapshot, s.now().UTC())
	if err != nil {
		return nil, err
	}

	return s.renderAndArchive(ctx, receipt, format, snapshot.ServiceRecordIDs)
}

// snapshotReceipt lays a snapshot out as a single receipt section
func snapshotReceipt(snapshot *models.ReceiptSnapshot, generatedAt time.Time) (*models.PrintableReceipt, error) {
	breakdown, err := pricing.DecomposeReverse(snapshot.Price, snapshot.TaxConfigAtTimeOfSale)
	if err != nil {
		return nil, err
	}

	vehicle := models.NoneKey
	if snapshot.VehicleRef != nil && *snapshot.VehicleRef != "" {
		vehicle = *snapshot.VehicleRef
	}

	rounded := breakdown.Rounded()
	group := models.PrintableGroup{
		VehicleRef:    vehicle,
		Date:          models.FormatDate(snapshot.PerformedDate),
		Items:         make([]models.PrintableItem, 0, len(snapshot.LineItems)),
		Subtotal:      rounded.Subtotal,
		FederalTax:    rounded.FederalTax,
		ProvincialTax: rounded.ProvincialTax,
		TaxAmount:     rounded.TaxAmount,
		Total:         pricing.RoundMoney(snapshot.Price),
		TaxSource:     string(pricing.TaxSourceSnapshot),
	}
	for _, item := range snapshot.LineItems {
		group.Items = append(group.Items, models.PrintableItem{
			ServiceRecordID: item.ServiceRecordID,
			ServiceName:     item.Name,
			Price:           pricing.RoundMoney(item.Price),
		})
	}

	return &models.PrintableReceipt{
		BusinessInfo: snapshot.BusinessInfo,
		Groups:       []models.PrintableGroup{group},
		SnapshotID:   snapshot.ID,
		GeneratedAt:  generatedAt,
	}, nil
}

func (s *receiptService) renderAndArchive(ctx context.Context, receipt *models.PrintableReceipt, format render.Format, recordIDs []string) (*RenderedReceipt, error) {
	renderer, err := render.New(format, s.renderOpt)
	if err != nil {
		return nil, invalidField("format", err)
	}

	data, err := renderer.Render(receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	s.metrics.ObserveRender(string(format))

	out := &RenderedReceipt{
		Format:      format,
		ContentType: renderer.ContentType(),
		Filename:    fmt.Sprintf("receipt-%s.%s", receipt.GeneratedAt.Format("20060102-150405"), renderer.Extension()),
		Data:        data,
		Receipt:     receipt,
	}

	if s.archive != nil {
		key := storage.ReceiptKey(receipt.GeneratedAt, renderer.Extension())
		opts := storage.ReceiptStoreOptions(renderer.ContentType(), string(format), receipt.SnapshotID, recordIDs)
		if err := s.archive.Store(ctx, key, data, opts); err != nil {
			s.metrics.ObserveArchiveFailure()
			s.logger.WithError(err).WithField("key", key).Warn("Failed to archive rendered receipt")
		} else {
			out.ArchiveKey = key
		}
	}

	return out, nil
}

func printableGroup(group pricing.ReceiptGroup, breakdown pricing.GroupBreakdown) models.PrintableGroup {
	rounded := breakdown.Breakdown.Rounded()
	out := models.PrintableGroup{
		VehicleRef:    group.VehicleRef,
		Date:          group.PerformedDate,
		Items:         make([]models.PrintableItem, 0, len(group.Items)),
		Subtotal:      rounded.Subtotal,
		FederalTax:    rounded.FederalTax,
		ProvincialTax: rounded.ProvincialTax,
		TaxAmount:     rounded.TaxAmount,
		Total:         pricing.RoundMoney(breakdown.Total),
		TaxSource:     string(breakdown.Source),
	}
	for _, r := range group.Items {
		item := models.PrintableItem{
			ServiceRecordID: r.ID,
			ServiceName:     r.ServiceName,
			Price:           pricing.RoundMoney(r.Price),
		}
		if r.ServiceDescription != nil {
			item.Description = *r.ServiceDescription
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// soleSnapshot returns the snapshot when one snapshot covers every selected record
func soleSnapshot(ids []string, covering map[string]*models.ReceiptSnapshot) (*models.ReceiptSnapshot, bool) {
	var sole *models.ReceiptSnapshot
	for _, id := range ids {
		snap, ok := covering[id]
		if !ok || (sole != nil && snap.ID != sole.ID) {
			return nil, false
		}
		sole = snap
	}
	return sole, sole != nil
}

// agreedBusinessInfo returns the frozen identity when every selected record is covered
// by a snapshot and all of those snapshots carry the same identity
func agreedBusinessInfo(ids []string, covering map[string]*models.ReceiptSnapshot) (models.BusinessInfo, bool) {
	var info *models.BusinessInfo
	for _, id := range ids {
		snap, ok := covering[id]
		if !ok {
			return models.BusinessInfo{}, false
		}
		if info == nil {
			info = &snap.BusinessInfo
			continue
		}
		if !info.Equal(snap.BusinessInfo) {
			return models.BusinessInfo{}, false
		}
	}
	if info == nil {
		return models.BusinessInfo{}, false
	}
	return *info, true
}
