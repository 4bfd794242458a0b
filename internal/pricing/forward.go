package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

// PricingResult is the derived breakdown of a sale. It is never persisted directly.
// Total == Subtotal + TaxAmount holds exactly on unrounded values.
type PricingResult struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	FederalTax    decimal.Decimal `json:"federal_tax"`
	ProvincialTax decimal.Decimal `json:"provincial_tax"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
}

// ZeroResult is the breakdown of an empty sale
func ZeroResult() PricingResult {
	return PricingResult{
		Subtotal:      decimal.Zero,
		FederalTax:    decimal.Zero,
		ProvincialTax: decimal.Zero,
		TaxAmount:     decimal.Zero,
		Total:         decimal.Zero,
	}
}

// ComputeForward prices a list of line items under config.
// An empty list yields a zero result. A negative base price or an out-of-range rate is rejected.
func ComputeForward(items []models.PricedLineItem, config models.TaxConfiguration) (PricingResult, error) {
	prices := make([]decimal.Decimal, len(items))
	for i, item := range items {
		if item.BasePrice.IsNegative() {
			return PricingResult{}, invalidInput(fmt.Sprintf("items[%d].base_price", i), "cannot be negative, got %s", item.BasePrice.String())
		}
		prices[i] = item.BasePrice
	}
	return ComputeForwardPrices(prices, config)
}

// ComputeForwardPrices is ComputeForward over bare base prices. A configuration carrying only
// the legacy combined rate is priced with its even split.
func ComputeForwardPrices(basePrices []decimal.Decimal, config models.TaxConfiguration) (PricingResult, error) {
	config = EffectiveConfig(config)
	if err := validateConfig(config); err != nil {
		return PricingResult{}, err
	}

	subtotal := decimal.Zero
	for i, price := range basePrices {
		if price.IsNegative() {
			return PricingResult{}, invalidInput("base_prices", "price %d cannot be negative, got %s", i, price.String())
		}
		subtotal = subtotal.Add(price)
	}

	return applyRates(subtotal, config), nil
}

// ComputeForwardSingle prices one base amount
func ComputeForwardSingle(basePrice decimal.Decimal, config models.TaxConfiguration) (PricingResult, error) {
	return ComputeForwardPrices([]decimal.Decimal{basePrice}, config)
}

func applyRates(subtotal decimal.Decimal, config models.TaxConfiguration) PricingResult {
	federalTax := percentOf(subtotal, config.FederalRate)
	provincialTax := percentOf(subtotal, config.ProvincialRate)
	taxAmount := federalTax.Add(provincialTax)

	return PricingResult{
		Subtotal:      subtotal,
		FederalTax:    federalTax,
		ProvincialTax: provincialTax,
		TaxAmount:     taxAmount,
		Total:         subtotal.Add(taxAmount),
	}
}

// Rounded returns a copy with every field rounded to cents for display
func (r PricingResult) Rounded() PricingResult {
	return PricingResult{
		Subtotal:      RoundMoney(r.Subtotal),
		FederalTax:    RoundMoney(r.FederalTax),
		ProvincialTax: RoundMoney(r.ProvincialTax),
		TaxAmount:     RoundMoney(r.TaxAmount),
		Total:         RoundMoney(r.Total),
	}
}

// Add sums two breakdowns field by field
func (r PricingResult) Add(other PricingResult) PricingResult {
	return PricingResult{
		Subtotal:      r.Subtotal.Add(other.Subtotal),
		FederalTax:    r.FederalTax.Add(other.FederalTax),
		ProvincialTax: r.ProvincialTax.Add(other.ProvincialTax),
		TaxAmount:     r.TaxAmount.Add(other.TaxAmount),
		Total:         r.Total.Add(other.Total),
	}
}

// TaxInclusivePrices splits a sale total across its items in proportion to their base prices,
// in whole cents. Each share is floored, then the leftover cents go to the items with the
// largest fractional remainders (earlier items win ties), so the parts always sum to the
// rounded sale total and none is negative.
func TaxInclusivePrices(items []models.PricedLineItem, config models.TaxConfiguration) ([]decimal.Decimal, error) {
	config = EffectiveConfig(config)
	result, err := ComputeForward(items, config)
	if err != nil {
		return nil, err
	}

	prices := make([]decimal.Decimal, len(items))
	if len(items) == 0 {
		return prices, nil
	}

	factor := decimal.NewFromInt(1).Add(config.CombinedRate().Div(hundred))
	remainders := make([]decimal.Decimal, len(items))
	allocated := decimal.Zero
	for i, item := range items {
		exact := item.BasePrice.Mul(factor)
		prices[i] = exact.RoundFloor(CurrencyPlaces)
		remainders[i] = exact.Sub(prices[i])
		allocated = allocated.Add(prices[i])
	}

	cent := decimal.New(1, -CurrencyPlaces)
	leftover := RoundMoney(result.Total).Sub(allocated).Div(cent).IntPart()

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	for i := int64(0); i < leftover && int(i) < len(order); i++ {
		idx := order[i]
		prices[idx] = prices[idx].Add(cent)
	}

	return prices, nil
}
