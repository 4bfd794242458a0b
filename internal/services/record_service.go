package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/repositories"
)

// serviceRecordService implements the ServiceRecordService interface
type serviceRecordService struct {
	records   repositories.ServiceRecordRepository
	settings  SettingsService
	snapshots SnapshotWriter
	validator *validator.Validate
	logger    *logrus.Logger
	now       func() time.Time
}

// NewServiceRecordService creates a service record service
func NewServiceRecordService(
	records repositories.ServiceRecordRepository,
	settings SettingsService,
	snapshots SnapshotWriter,
	logger *logrus.Logger,
) ServiceRecordService {
	if logger == nil {
		logger = logrus.New()
	}
	return &serviceRecordService{
		records:   records,
		settings:  settings,
		snapshots: snapshots,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// RecordService stores a completed appointment at the price charged, tax included,
// and freezes the current configuration in an appointment snapshot
func (s *serviceRecordService) RecordService(ctx context.Context, req *RecordServiceRequest) (*RecordServiceResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: record service request cannot be nil", ErrInvalidInput)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}
	if req.Price.IsNegative() {
		return nil, &pricing.InvalidInputError{Field: "price", Reason: fmt.Sprintf("cannot be negative, got %s", req.Price.String())}
	}

	performed, err := parseOptionalDate("performed_date", req.PerformedDate, s.now())
	if err != nil {
		return nil, err
	}

	record := models.NewServiceRecord(req.ServiceName, pricing.RoundMoney(req.Price), performed)
	record.VehicleRef = trimmedRef(req.VehicleRef)
	record.CustomerRef = trimmedRef(req.CustomerRef)
	record.ServiceDescription = trimmedRef(req.ServiceDescription)

	if err := record.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	// Read before the insert so the snapshot describes the settings the charge was made under.
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create service record: %w", err)
	}

	snapshotID, warnings := writeBestEffort(ctx, s.snapshots, SnapshotInput{
		Source:   models.SnapshotSourceAppointment,
		Records:  []*models.ServiceRecord{record},
		Config:   pricing.ResolveTaxConfig(settings.RawTaxSettings()),
		Business: settings.BusinessInfo(),
	})

	return &RecordServiceResult{
		Record:     record,
		SnapshotID: snapshotID,
		Warnings:   warnings,
	}, nil
}

// GetRecord retrieves a service record by ID
func (s *serviceRecordService) GetRecord(ctx context.Context, id string) (*models.ServiceRecord, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service record: %w", err)
	}
	return record, nil
}

// ListRecords returns one page of service history
func (s *serviceRecordService) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResult, error) {
	if req == nil {
		req = &ListRecordsRequest{}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	filters := models.ServiceRecordFilters{
		CustomerRef: trimmedRef(&req.CustomerRef),
		VehicleRef:  trimmedRef(&req.VehicleRef),
		Limit:       req.Limit,
		Offset:      req.Offset,
	}
	if filters.Limit == 0 {
		filters.Limit = models.DefaultListLimit
	}

	if req.From != "" {
		from, err := models.ParseDate(req.From)
		if err != nil {
			return nil, invalidField("from", err)
		}
		filters.From = &from
	}
	if req.To != "" {
		to, err := models.ParseDate(req.To)
		if err != nil {
			return nil, invalidField("to", err)
		}
		filters.To = &to
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, &pricing.InvalidInputError{Field: "to", Reason: "must not be before from"}
	}

	records, err := s.records.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}

	total, err := s.records.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count service records: %w", err)
	}

	return &ListRecordsResult{
		Records:    records,
		Pagination: models.NewPaginationResult(total, filters.Limit, filters.Offset),
	}, nil
}

// DeleteRecord removes a record. Snapshots that covered it are kept.
func (s *serviceRecordService) DeleteRecord(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete service record: %w", err)
	}

	s.logger.WithField("service_record_id", id).Info("Service record deleted")
	return nil
}

// maxIDLength fits generated UUIDs and the ids carried over by history imports
const maxIDLength = 64

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &pricing.InvalidInputError{Field: "id", Reason: "is required"}
	}
	if len(id) > maxIDLength {
		return &pricing.InvalidInputError{Field: "id", Reason: fmt.Sprintf("cannot exceed %d characters", maxIDLength)}
	}
	return nil
}
