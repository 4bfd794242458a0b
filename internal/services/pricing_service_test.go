package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
)

func cart(prices ...string) []LineItemInput {
	items := make([]LineItemInput, len(prices))
	for i, p := range prices {
		items[i] = LineItemInput{Name: "Service", BasePrice: d(p), Kind: models.LineItemKindPackage}
	}
	return items
}

func TestPricingService_Quote(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	t.Run("current settings", func(t *testing.T) {
		res, err := h.container.Pricing.Quote(ctx, &QuoteRequest{Items: cart("50.00", "25.00")})
		require.NoError(t, err)

		assertMoney(t, "75.00", res.Pricing.Subtotal, "subtotal")
		assertMoney(t, "3.75", res.Pricing.FederalTax, "federal")
		assertMoney(t, "7.48", res.Pricing.ProvincialTax, "provincial")
		assertMoney(t, "86.23", res.Pricing.Total, "total")
		require.Len(t, res.ItemPrices, 2)
		assertMoney(t, "57.49", res.ItemPrices[0], "item 0")
		assertMoney(t, "28.74", res.ItemPrices[1], "item 1")
	})

	t.Run("explicit legacy rate", func(t *testing.T) {
		res, err := h.container.Pricing.Quote(ctx, &QuoteRequest{
			Items: cart("100"),
			Rates: &RatesInput{TaxRate: dp("10")},
		})
		require.NoError(t, err)
		assertMoney(t, "5", res.TaxConfiguration.FederalRate, "federal rate")
		assertMoney(t, "5", res.TaxConfiguration.ProvincialRate, "provincial rate")
		assertMoney(t, "110.00", res.Pricing.Total, "total")
	})

	t.Run("empty cart", func(t *testing.T) {
		res, err := h.container.Pricing.Quote(ctx, &QuoteRequest{})
		require.NoError(t, err)
		assert.True(t, res.Pricing.Total.IsZero())
		assert.Empty(t, res.ItemPrices)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := h.container.Pricing.Quote(ctx, &QuoteRequest{Items: cart("10", "-1")})
		require.ErrorIs(t, err, ErrInvalidInput)

		var inv *pricing.InvalidInputError
		require.True(t, errors.As(err, &inv))
		assert.Equal(t, "items[1]", inv.Field)
	})

	t.Run("rate out of range", func(t *testing.T) {
		_, err := h.container.Pricing.Quote(ctx, &QuoteRequest{
			Items: cart("10"),
			Rates: &RatesInput{FederalTaxRate: dp("101")},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := h.container.Pricing.Quote(ctx, &QuoteRequest{
			Items: []LineItemInput{{BasePrice: d("1"), Kind: models.LineItemKindAddon}},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestPricingService_Decompose(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := h.container.Pricing.Decompose(ctx, &DecomposeRequest{Total: d("114.98")})
	require.NoError(t, err)
	assertMoney(t, "100.00", res.Breakdown.Subtotal, "subtotal")
	assertMoney(t, "5.00", res.Breakdown.FederalTax, "federal")
	assertMoney(t, "9.98", res.Breakdown.ProvincialTax, "provincial")

	zero, err := h.container.Pricing.Decompose(ctx, &DecomposeRequest{
		Total: d("40"),
		Rates: &RatesInput{FederalTaxRate: dp("0"), ProvincialTaxRate: dp("0")},
	})
	require.NoError(t, err)
	assertMoney(t, "40", zero.Breakdown.Subtotal, "zero-rate subtotal")
	assert.True(t, zero.Breakdown.TaxAmount.IsZero())

	_, err = h.container.Pricing.Decompose(ctx, &DecomposeRequest{Total: d("-5")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPricingService_TaxConfiguration(t *testing.T) {
	h := newHarness(t, nil)
	legacy := models.NewBusinessSettings("Garage", "", "")
	legacy.TaxRate = dp("10")
	h.settingsRepo.set(legacy)

	view, err := h.container.Pricing.TaxConfiguration(context.Background())
	require.NoError(t, err)
	assertMoney(t, "10", *view.Raw.TaxRate, "raw")
	assertMoney(t, "5", view.Resolved.FederalRate, "federal")
	assertMoney(t, "5", view.Resolved.ProvincialRate, "provincial")
	assertMoney(t, "10", view.CombinedRate, "combined")
}
