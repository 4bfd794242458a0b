package pricing

import (
	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

// Breakdown is a tax-inclusive total split back into base price and per-jurisdiction tax
type Breakdown struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	FederalTax    decimal.Decimal `json:"federal_tax"`
	ProvincialTax decimal.Decimal `json:"provincial_tax"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// DecomposeReverse recovers the base price and taxes implied by a charged total.
// It is the algebraic inverse of ComputeForward: subtotal = total / (1 + r) where
// r = (federal + provincial) / 100. A zero combined rate returns the total untouched.
// A legacy-only configuration is decomposed with its even split.
func DecomposeReverse(total decimal.Decimal, config models.TaxConfiguration) (Breakdown, error) {
	config = EffectiveConfig(config)
	if total.IsNegative() {
		return Breakdown{}, invalidInput("total", "cannot be negative, got %s", total.String())
	}
	if err := validateConfig(config); err != nil {
		return Breakdown{}, err
	}

	r := config.CombinedRate().Div(hundred)
	if r.IsZero() {
		return Breakdown{
			Subtotal:      total,
			FederalTax:    decimal.Zero,
			ProvincialTax: decimal.Zero,
			TaxAmount:     decimal.Zero,
		}, nil
	}

	subtotal := total.Div(decimal.NewFromInt(1).Add(r))
	federalTax := percentOf(subtotal, config.FederalRate)
	provincialTax := percentOf(subtotal, config.ProvincialRate)

	return Breakdown{
		Subtotal:      subtotal,
		FederalTax:    federalTax,
		ProvincialTax: provincialTax,
		TaxAmount:     federalTax.Add(provincialTax),
	}, nil
}

// Rounded returns a copy with every field rounded to cents for display
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		Subtotal:      RoundMoney(b.Subtotal),
		FederalTax:    RoundMoney(b.FederalTax),
		ProvincialTax: RoundMoney(b.ProvincialTax),
		TaxAmount:     RoundMoney(b.TaxAmount),
	}
}

// Add sums two breakdowns field by field
func (b Breakdown) Add(other Breakdown) Breakdown {
	return Breakdown{
		Subtotal:      b.Subtotal.Add(other.Subtotal),
		FederalTax:    b.FederalTax.Add(other.FederalTax),
		ProvincialTax: b.ProvincialTax.Add(other.ProvincialTax),
		TaxAmount:     b.TaxAmount.Add(other.TaxAmount),
	}
}

// ZeroBreakdown is the breakdown of a zero total
func ZeroBreakdown() Breakdown {
	return Breakdown{
		Subtotal:      decimal.Zero,
		FederalTax:    decimal.Zero,
		ProvincialTax: decimal.Zero,
		TaxAmount:     decimal.Zero,
	}
}
