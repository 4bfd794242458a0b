package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
)

// pricingService implements the PricingService interface
type pricingService struct {
	settings  SettingsService
	validator *validator.Validate
}

// NewPricingService creates a pricing service backed by the current settings
func NewPricingService(settings SettingsService) PricingService {
	return &pricingService{
		settings:  settings,
		validator: validator.New(),
	}
}

// Quote prices a cart for live display
func (s *pricingService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: quote request cannot be nil", ErrInvalidInput)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	config, err := s.configFor(ctx, req.Rates)
	if err != nil {
		return nil, err
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	result, err := pricing.ComputeForward(items, config)
	if err != nil {
		return nil, err
	}

	prices, err := pricing.TaxInclusivePrices(items, config)
	if err != nil {
		return nil, err
	}

	return &QuoteResult{
		Pricing:          result.Rounded(),
		ItemPrices:       prices,
		TaxConfiguration: config,
	}, nil
}

// Decompose splits a charged total for display
func (s *pricingService) Decompose(ctx context.Context, req *DecomposeRequest) (*DecomposeResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: decompose request cannot be nil", ErrInvalidInput)
	}

	config, err := s.configFor(ctx, req.Rates)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.DecomposeReverse(req.Total, config)
	if err != nil {
		return nil, err
	}

	return &DecomposeResult{
		Total:            pricing.RoundMoney(req.Total),
		Breakdown:        breakdown.Rounded(),
		TaxConfiguration: config,
	}, nil
}

// TaxConfiguration shows the stored rates and what they resolve to
func (s *pricingService) TaxConfiguration(ctx context.Context) (*TaxConfigurationView, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	raw := settings.RawTaxSettings()
	resolved := pricing.ResolveTaxConfig(raw)
	return &TaxConfigurationView{
		Raw:          raw,
		Resolved:     resolved,
		CombinedRate: resolved.CombinedRate(),
	}, nil
}

// configFor resolves explicit rates when given, the cached current settings otherwise
func (s *pricingService) configFor(ctx context.Context, rates *RatesInput) (models.TaxConfiguration, error) {
	if rates == nil || rates.IsEmpty() {
		return s.settings.CurrentTaxConfig(ctx)
	}

	raw := rates.Raw()
	if err := raw.Validate(); err != nil {
		return models.TaxConfiguration{}, invalidRequest(err)
	}
	return pricing.ResolveTaxConfig(raw), nil
}

// toLineItems converts cart input into validated line items, keeping client ids when given
func toLineItems(inputs []LineItemInput) ([]models.PricedLineItem, error) {
	items := lo.Map(inputs, func(in LineItemInput, _ int) models.PricedLineItem {
		item := models.NewPricedLineItem(in.Name, in.BasePrice, in.Kind)
		if in.ID != "" {
			item.ID = in.ID
		}
		return item
	})

	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, invalidField(fmt.Sprintf("items[%d]", i), err)
		}
	}
	return items, nil
}
