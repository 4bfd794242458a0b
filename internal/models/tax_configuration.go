package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxTaxRate is the upper bound for any jurisdictional rate, expressed as a percentage
var MaxTaxRate = decimal.NewFromInt(100)

// RawTaxSettings holds the tax fields as they are stored in business settings.
// Any field may be absent. Older installations only ever recorded TaxRate.
type RawTaxSettings struct {
	TaxRate           *decimal.Decimal `json:"tax_rate,omitempty"`
	FederalTaxRate    *decimal.Decimal `json:"federal_tax_rate,omitempty"`
	ProvincialTaxRate *decimal.Decimal `json:"provincial_tax_rate,omitempty"`
}

// Validate checks that every present rate lies within [0, 100]
func (r RawTaxSettings) Validate() error {
	if err := validateRate("tax_rate", r.TaxRate); err != nil {
		return err
	}
	if err := validateRate("federal_tax_rate", r.FederalTaxRate); err != nil {
		return err
	}
	return validateRate("provincial_tax_rate", r.ProvincialTaxRate)
}

func validateRate(field string, rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(MaxTaxRate) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between 0 and 100, got %s", field, rate.String()),
			Value:   rate.String(),
		}
	}
	return nil
}

// TaxConfiguration is the normalized two-jurisdiction form of the business tax settings.
// It is a value object: receipts freeze a full copy of it at the time of sale.
type TaxConfiguration struct {
	FederalRate        decimal.Decimal `json:"federal_rate"`
	ProvincialRate     decimal.Decimal `json:"provincial_rate"`
	LegacyCombinedRate decimal.Decimal `json:"legacy_combined_rate"`
}

// NewTaxConfiguration builds a configuration from explicit federal and provincial rates
func NewTaxConfiguration(federal, provincial decimal.Decimal) TaxConfiguration {
	return TaxConfiguration{
		FederalRate:        federal,
		ProvincialRate:     provincial,
		LegacyCombinedRate: decimal.Zero,
	}
}

// CombinedRate returns federal + provincial as a percentage
func (c TaxConfiguration) CombinedRate() decimal.Decimal {
	return c.FederalRate.Add(c.ProvincialRate)
}

// IsZero reports whether no tax applies under this configuration
func (c TaxConfiguration) IsZero() bool {
	return c.FederalRate.IsZero() && c.ProvincialRate.IsZero()
}

// Equal compares two configurations numerically
func (c TaxConfiguration) Equal(other TaxConfiguration) bool {
	return c.FederalRate.Equal(other.FederalRate) &&
		c.ProvincialRate.Equal(other.ProvincialRate) &&
		c.LegacyCombinedRate.Equal(other.LegacyCombinedRate)
}

// Validate checks that each rate lies within [0, 100]
func (c TaxConfiguration) Validate() error {
	for field, rate := range map[string]decimal.Decimal{
		"federal_rate":         c.FederalRate,
		"provincial_rate":      c.ProvincialRate,
		"legacy_combined_rate": c.LegacyCombinedRate,
	} {
		rate := rate
		if err := validateRate(field, &rate); err != nil {
			return err
		}
	}
	return nil
}

func (c TaxConfiguration) String() string {
	return fmt.Sprintf("federal=%s%% provincial=%s%%", c.FederalRate.String(), c.ProvincialRate.String())
}
