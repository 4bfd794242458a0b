package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
)

func checkoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		Items: []LineItemInput{
			{Name: "Full detail package", BasePrice: d("50.00"), Kind: models.LineItemKindPackage},
			{Name: "Tire shine", BasePrice: d("25.00"), Kind: models.LineItemKindAddon},
		},
		VehicleRef:    strPtr(" veh-42 "),
		CustomerRef:   strPtr("cust-7"),
		PerformedDate: strPtr("2024-03-15"),
	}
}

func TestCheckout_PersistsRecordsAndSnapshot(t *testing.T) {
	m := metrics.New()
	h := newHarness(t, &ServiceConfig{Metrics: m})

	res, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assertMoney(t, "57.49", res.Records[0].Price, "record 0 price")
	assertMoney(t, "28.74", res.Records[1].Price, "record 1 price")
	assertMoney(t, "86.23", res.Records[0].Price.Add(res.Records[1].Price), "sum of record prices")
	assertMoney(t, "86.23", res.Pricing.Total, "total")
	assertMoney(t, "75.00", res.Pricing.Subtotal, "subtotal")

	for _, r := range res.Records {
		assert.Equal(t, "veh-42", *r.VehicleRef)
		assert.Equal(t, "cust-7", *r.CustomerRef)
		assert.Equal(t, "2024-03-15", r.DateKey())
	}

	require.NotNil(t, res.SnapshotID)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, h.records.count())
	assert.Equal(t, 1, h.tx.commits)

	snap, err := h.snapshots.GetByID(context.Background(), *res.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotSourceCheckout, snap.Source)
	assertMoney(t, "86.23", snap.Price, "snapshot price")
	assertMoney(t, "9.975", snap.TaxConfigAtTimeOfSale.ProvincialRate, "frozen provincial")
	assert.Equal(t, "Garage Nord", snap.BusinessInfo.Name)
	assert.Equal(t, []string{res.Records[0].ID, res.Records[1].ID}, snap.ServiceRecordIDs)
	assert.Equal(t, models.LineItemKindAddon, snap.LineItems[1].Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotWrites.WithLabelValues("checkout", metrics.ResultSuccess)))
}

func TestCheckout_SnapshotWrittenAfterCommit(t *testing.T) {
	h := newHarness(t, nil)

	var sawTx bool
	var committedBefore int
	h.snapshots.onCreate = func(ctx context.Context, _ *models.ReceiptSnapshot) {
		sawTx = inTx(ctx)
		committedBefore = h.tx.commits
	}

	_, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)
	assert.False(t, sawTx, "snapshot must not be written inside the sale transaction")
	assert.Equal(t, 1, committedBefore)
}

func TestCheckout_SnapshotFailureDoesNotAbortSale(t *testing.T) {
	m := metrics.New()
	h := newHarness(t, &ServiceConfig{Metrics: m})
	h.snapshots.createErr = errDiskFull

	res, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Nil(t, res.SnapshotID)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, 2, h.records.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotWrites.WithLabelValues("checkout", metrics.ResultFailure)))

	var warned bool
	for _, entry := range h.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
			assert.Contains(t, entry.Data, "record_ids")
		}
	}
	assert.True(t, warned)
}

func TestCheckout_SnapshotSurvivesCancelledRequest(t *testing.T) {
	h := newHarness(t, nil)

	var writeCtxErr error = context.Canceled
	h.snapshots.onCreate = func(ctx context.Context, _ *models.ReceiptSnapshot) {
		writeCtxErr = ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.container.Checkout.Checkout(ctx, checkoutRequest())
	require.NoError(t, err)
	assert.NoError(t, writeCtxErr)
	assert.NotNil(t, res.SnapshotID)
}

func TestCheckout_UsesUncachedSettings(t *testing.T) {
	h := newHarness(t, &ServiceConfig{SettingsCacheTTL: time.Hour})
	ctx := context.Background()

	cached, err := h.container.Settings.CurrentTaxConfig(ctx)
	require.NoError(t, err)
	assertMoney(t, "9.975", cached.ProvincialRate, "cached provincial")

	changed := quebecSettings()
	changed.ProvincialTaxRate = nil
	h.settingsRepo.set(changed)

	res, err := h.container.Checkout.Checkout(ctx, checkoutRequest())
	require.NoError(t, err)
	assert.True(t, res.TaxConfiguration.ProvincialRate.IsZero())
	assertMoney(t, "78.75", res.Pricing.Total, "total under federal only")

	snap, err := h.snapshots.GetByID(ctx, *res.SnapshotID)
	require.NoError(t, err)
	assert.True(t, snap.TaxConfigAtTimeOfSale.Equal(res.TaxConfiguration))
}

func TestCheckout_RollsBackOnStoreFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.records.createErr = errDiskFull

	_, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, h.tx.rollbacks)
	assert.Zero(t, h.records.count())
	assert.Zero(t, h.snapshots.count())
}

func TestCheckout_ZeroTaxWhenNoSettings(t *testing.T) {
	h := newHarness(t, nil)
	h.settingsRepo.set(nil)

	res, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)
	assertMoney(t, "75.00", res.Pricing.Total, "total")
	assertMoney(t, "50.00", res.Records[0].Price, "record 0")
}

func TestCheckout_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CheckoutRequest)
	}{
		{"no items", func(r *CheckoutRequest) { r.Items = nil }},
		{"negative price", func(r *CheckoutRequest) { r.Items[0].BasePrice = d("-0.01") }},
		{"unknown kind", func(r *CheckoutRequest) { r.Items[1].Kind = models.LineItemKind("gift") }},
		{"blank name", func(r *CheckoutRequest) { r.Items[0].Name = "" }},
		{"bad date", func(r *CheckoutRequest) { r.PerformedDate = strPtr("15/03/2024") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			req := checkoutRequest()
			tt.mutate(req)

			_, err := h.container.Checkout.Checkout(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, h.records.count())
			assert.Zero(t, h.tx.commits)
		})
	}
}

func TestCheckout_DefaultsToToday(t *testing.T) {
	h := newHarness(t, nil)
	svc := h.container.Checkout.(*checkoutService)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC) }

	req := checkoutRequest()
	req.PerformedDate = nil

	res, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", res.Records[0].DateKey())
	assert.Equal(t, pricing.RoundMoney(res.Pricing.Total), res.Pricing.Total)
}
