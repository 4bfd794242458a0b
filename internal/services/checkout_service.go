package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/repositories"
)

// checkoutService implements the CheckoutService interface
type checkoutService struct {
	records      repositories.ServiceRecordRepository
	settingsRepo repositories.BusinessSettingsRepository
	transactions repositories.TransactionManager
	snapshots    SnapshotWriter
	metrics      *metrics.Metrics
	validator    *validator.Validate
	logger       *logrus.Logger
	now          func() time.Time
}

// NewCheckoutService creates a checkout service
func NewCheckoutService(
	records repositories.ServiceRecordRepository,
	settingsRepo repositories.BusinessSettingsRepository,
	transactions repositories.TransactionManager,
	snapshots SnapshotWriter,
	m *metrics.Metrics,
	logger *logrus.Logger,
) CheckoutService {
	if logger == nil {
		logger = logrus.New()
	}
	return &checkoutService{
		records:      records,
		settingsRepo: settingsRepo,
		transactions: transactions,
		snapshots:    snapshots,
		metrics:      m,
		validator:    validator.New(),
		logger:       logger,
		now:          time.Now,
	}
}

// Checkout prices the cart and stores one service record per item in a single transaction.
//
// Settings are read inside the transaction, bypassing any cache, and the configuration read
// there is the one frozen into the snapshot. The snapshot is written after commit; if that
// fails the sale still stands and the result carries a nil SnapshotID and a warning.
func (s *checkoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: checkout request cannot be nil", ErrInvalidInput)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	performed, err := parseOptionalDate("performed_date", req.PerformedDate, s.now())
	if err != nil {
		return nil, err
	}

	var (
		records  []*models.ServiceRecord
		config   models.TaxConfiguration
		business models.BusinessInfo
		result   pricing.PricingResult
	)

	err = s.transactions.WithTransaction(ctx, func(txCtx context.Context) error {
		settings, err := loadSettings(txCtx, s.settingsRepo)
		if err != nil {
			return err
		}
		config = pricing.ResolveTaxConfig(settings.RawTaxSettings())
		business = settings.BusinessInfo()

		result, err = pricing.ComputeForward(items, config)
		if err != nil {
			return err
		}
		prices, err := pricing.TaxInclusivePrices(items, config)
		if err != nil {
			return err
		}

		records = make([]*models.ServiceRecord, len(items))
		for i, item := range items {
			record := models.NewServiceRecord(item.Name, prices[i], performed)
			record.VehicleRef = trimmedRef(req.VehicleRef)
			record.CustomerRef = trimmedRef(req.CustomerRef)
			records[i] = record
		}

		return s.records.CreateBatch(txCtx, records)
	})
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	s.metrics.ObserveCheckout()

	snapshotID, warnings := writeBestEffort(ctx, s.snapshots, SnapshotInput{
		Source:   models.SnapshotSourceCheckout,
		Records:  records,
		Kinds:    lo.Map(items, func(item models.PricedLineItem, _ int) models.LineItemKind { return item.Kind }),
		Config:   config,
		Business: business,
	})

	s.logger.WithFields(logrus.Fields{
		"records":      len(records),
		"total":        pricing.RoundMoney(result.Total).StringFixed(pricing.CurrencyPlaces),
		"snapshot_set": snapshotID != nil,
	}).Info("Checkout completed")

	return &CheckoutResult{
		Records:          records,
		Pricing:          result.Rounded(),
		TaxConfiguration: config,
		SnapshotID:       snapshotID,
		Warnings:         warnings,
	}, nil
}

// parseOptionalDate parses a YYYY-MM-DD value, falling back to the date of fallback
func parseOptionalDate(field string, value *string, fallback time.Time) (time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return models.TruncateToDate(fallback), nil
	}
	date, err := models.ParseDate(*value)
	if err != nil {
		return time.Time{}, invalidField(field, err)
	}
	return date, nil
}

func trimmedRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
