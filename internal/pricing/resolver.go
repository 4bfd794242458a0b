// Package pricing holds the tax-inclusive pricing engine: rate resolution, forward pricing,
// reverse decomposition of charged totals and consolidation of service history into receipts.
//
// Every function here is pure. Amounts are carried at full precision and rounded only by
// the presentation helpers (Rounded, RoundMoney).
package pricing

import (
	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

var two = decimal.NewFromInt(2)

// ResolveTaxConfig normalizes raw settings into the two-jurisdiction form.
//
// Explicit federal/provincial rates win when either is positive; a missing one counts as 0.
// Otherwise a positive legacy single rate is split evenly between the jurisdictions.
// Otherwise no tax applies. Absent input is valid.
func ResolveTaxConfig(raw models.RawTaxSettings) models.TaxConfiguration {
	federal := positiveOrZero(raw.FederalTaxRate)
	provincial := positiveOrZero(raw.ProvincialTaxRate)
	legacy := positiveOrZero(raw.TaxRate)

	if federal.IsPositive() || provincial.IsPositive() {
		return models.TaxConfiguration{
			FederalRate:        federal,
			ProvincialRate:     provincial,
			LegacyCombinedRate: legacy,
		}
	}

	if legacy.IsPositive() {
		half := legacy.Div(two)
		return models.TaxConfiguration{
			FederalRate:        half,
			ProvincialRate:     half,
			LegacyCombinedRate: legacy,
		}
	}

	return models.TaxConfiguration{
		FederalRate:        decimal.Zero,
		ProvincialRate:     decimal.Zero,
		LegacyCombinedRate: decimal.Zero,
	}
}

// EffectiveConfig applies the legacy split to a configuration that was stored without one,
// e.g. a snapshot frozen by an older release that only carried the combined rate.
func EffectiveConfig(config models.TaxConfiguration) models.TaxConfiguration {
	if config.FederalRate.IsZero() && config.ProvincialRate.IsZero() && config.LegacyCombinedRate.IsPositive() {
		half := config.LegacyCombinedRate.Div(two)
		config.FederalRate = half
		config.ProvincialRate = half
	}
	return config
}

func positiveOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil || !d.IsPositive() {
		return decimal.Zero
	}
	return *d
}
