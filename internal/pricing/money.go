package pricing

import (
	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

// CurrencyPlaces is the number of decimal places used when presenting money
const CurrencyPlaces = 2

// Tolerance is the accepted difference between reconstructed and original amounts
var Tolerance = decimal.New(1, -CurrencyPlaces)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to cents, half away from zero. Only presentation code calls this.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// WithinTolerance reports whether a and b differ by at most one cent
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// percentOf returns amount × rate/100 without intermediate rounding
func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

func validateConfig(config models.TaxConfiguration) error {
	if err := config.Validate(); err != nil {
		if ve, ok := err.(*models.ValidationError); ok {
			return invalidInput(ve.Field, "%s", ve.Message)
		}
		return invalidInput("tax_configuration", "%v", err)
	}
	return nil
}
