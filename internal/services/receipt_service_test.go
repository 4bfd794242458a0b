package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoservice-billing-api/internal/adapters/storage"
	"autoservice-billing-api/internal/metrics"
	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/render"
)

// checkoutSale runs the standard two-item checkout and returns its record ids and snapshot id
func checkoutSale(t *testing.T, h *harness) ([]string, string) {
	t.Helper()
	res, err := h.container.Checkout.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)
	require.NotNil(t, res.SnapshotID)
	return []string{res.Records[0].ID, res.Records[1].ID}, *res.SnapshotID
}

// switchToFederalOnly replaces the current settings after a sale has been made
func switchToFederalOnly(h *harness) {
	changed := quebecSettings()
	changed.Name = "Garage Sud"
	changed.ProvincialTaxRate = nil
	h.settingsRepo.set(changed)
}

func TestReceiptService_BuildReceipt_GroupsByVehicleAndDate(t *testing.T) {
	h := newHarness(t, nil)
	a := seedRecord(t, h, "Full detail", "57.49", "veh-1", "cust-1", "2024-03-15")
	b := seedRecord(t, h, "Tire shine", "28.74", "veh-1", "cust-1", "2024-03-15")
	c := seedRecord(t, h, "Alignment", "40.00", "veh-2", "cust-1", "2024-03-15")

	receipt, err := h.container.Receipts.BuildReceipt(context.Background(), &BuildReceiptRequest{
		ServiceRecordIDs: []string{a.ID, b.ID, c.ID, a.ID},
	})
	require.NoError(t, err)

	require.Len(t, receipt.Groups, 2)
	first := receipt.Groups[0]
	assert.Equal(t, "veh-1", first.VehicleRef)
	assert.Equal(t, "2024-03-15", first.Date)
	assert.Len(t, first.Items, 2)
	assertMoney(t, "86.23", first.Total, "group total")
	assertMoney(t, "75.00", first.Subtotal, "group subtotal")
	assertMoney(t, "3.75", first.FederalTax, "group federal")
	assertMoney(t, "7.48", first.ProvincialTax, "group provincial")
	assert.Equal(t, "current", first.TaxSource)

	assert.Len(t, receipt.Groups[1].Items, 1)
	assertMoney(t, "126.23", receipt.GrandTotal(), "grand total")
	assert.Equal(t, 3, receipt.ItemCount())
	assert.Empty(t, receipt.SnapshotID)
	assert.Equal(t, "Garage Nord", receipt.BusinessInfo.Name)
}

func TestReceiptService_BuildReceipt_SnapshotSurvivesSettingsChange(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ids, snapshotID := checkoutSale(t, h)
	switchToFederalOnly(h)

	frozen, err := h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{ServiceRecordIDs: ids})
	require.NoError(t, err)
	require.Len(t, frozen.Groups, 1)
	assertMoney(t, "75.00", frozen.Groups[0].Subtotal, "snapshot subtotal")
	assertMoney(t, "7.48", frozen.Groups[0].ProvincialTax, "snapshot provincial")
	assert.Equal(t, "snapshot", frozen.Groups[0].TaxSource)
	assert.Equal(t, snapshotID, frozen.SnapshotID)
	assert.Equal(t, "Garage Nord", frozen.BusinessInfo.Name)

	current, err := h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{
		ServiceRecordIDs: ids,
		TaxSource:        "current",
	})
	require.NoError(t, err)
	require.Len(t, current.Groups, 1)
	assertMoney(t, "82.12", current.Groups[0].Subtotal, "current subtotal")
	assertMoney(t, "4.11", current.Groups[0].FederalTax, "current federal")
	assert.True(t, current.Groups[0].ProvincialTax.IsZero())
	assertMoney(t, "86.23", current.Groups[0].Total, "total is unchanged")
	assert.Equal(t, "current", current.Groups[0].TaxSource)
	assert.Empty(t, current.SnapshotID)
	assert.Equal(t, "Garage Sud", current.BusinessInfo.Name)
}

func TestReceiptService_BuildReceipt_MixedSources(t *testing.T) {
	h := newHarness(t, nil)
	ids, _ := checkoutSale(t, h)
	walkIn := seedRecord(t, h, "Wiper blades", "23.00", "veh-42", "", "2024-03-15")
	switchToFederalOnly(h)

	receipt, err := h.container.Receipts.BuildReceipt(context.Background(), &BuildReceiptRequest{
		ServiceRecordIDs: append(ids, walkIn.ID),
	})
	require.NoError(t, err)

	require.Len(t, receipt.Groups, 1)
	group := receipt.Groups[0]
	assert.Equal(t, "mixed", group.TaxSource)
	assert.Len(t, group.Items, 3)
	assertMoney(t, "109.23", group.Total, "group total")
	// 75.00 from the snapshot bucket plus 23.00 / 1.05 from the current one
	assertMoney(t, "96.90", group.Subtotal, "group subtotal")
	assert.Empty(t, receipt.SnapshotID)
	assert.Equal(t, "Garage Sud", receipt.BusinessInfo.Name)
}

func TestReceiptService_BuildReceipt_Selection(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	empty, err := h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Groups)
	assert.True(t, empty.GrandTotal().IsZero())

	known := seedRecord(t, h, "Wash", "20.00", "", "", "2024-01-05")
	_, err = h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{
		ServiceRecordIDs: []string{known.ID, "missing-record"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing-record")

	_, err = h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{
		ServiceRecordIDs: []string{known.ID},
		TaxSource:        "yesterday",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.container.Receipts.BuildReceipt(ctx, &BuildReceiptRequest{ServiceRecordIDs: []string{""}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReceiptService_Print_ArchivesDocument(t *testing.T) {
	archive := storage.NewMemoryFileStorage()
	m := metrics.New()
	h := newHarness(t, &ServiceConfig{Archive: archive, Metrics: m})
	ctx := context.Background()
	ids, snapshotID := checkoutSale(t, h)

	doc, err := h.container.Receipts.Print(ctx, &PrintRequest{
		BuildReceiptRequest: BuildReceiptRequest{ServiceRecordIDs: ids},
		Format:              render.FormatPDF,
	})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
	assert.True(t, strings.HasSuffix(doc.Filename, ".pdf"))
	require.NotEmpty(t, doc.ArchiveKey)
	assert.True(t, strings.HasPrefix(doc.ArchiveKey, "receipts/"))

	meta, err := archive.GetMetadata(ctx, doc.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", meta.ContentType)
	assert.Equal(t, snapshotID, meta.Metadata["snapshot_id"])

	stored, err := archive.Retrieve(ctx, doc.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, doc.Data, stored)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiptsRendered.WithLabelValues("pdf")))
}

// brokenArchive fails every store
type brokenArchive struct {
	storage.FileStorage
}

func (brokenArchive) Store(ctx context.Context, key string, data []byte, opts *storage.StoreOptions) error {
	return storage.NewStorageError("store", key, storage.ErrStorageUnavailable, false)
}

func TestReceiptService_Print_ArchiveFailureStillReturnsDocument(t *testing.T) {
	m := metrics.New()
	h := newHarness(t, &ServiceConfig{Archive: brokenArchive{}, Metrics: m})
	ids, _ := checkoutSale(t, h)

	doc, err := h.container.Receipts.Print(context.Background(), &PrintRequest{
		BuildReceiptRequest: BuildReceiptRequest{ServiceRecordIDs: ids},
	})
	require.NoError(t, err)
	assert.Equal(t, render.FormatJSON, doc.Format)
	assert.Contains(t, string(doc.Data), `"Garage Nord"`)
	assert.Empty(t, doc.ArchiveKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchiveFailures))
}

func TestReceiptService_Print_RejectsUnknownFormat(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.container.Receipts.Print(context.Background(), &PrintRequest{Format: "docx"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReceiptService_PrintSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	ids, snapshotID := checkoutSale(t, h)
	switchToFederalOnly(h)

	doc, err := h.container.Receipts.PrintSnapshot(ctx, snapshotID, render.FormatThermal)
	require.NoError(t, err)

	assert.Equal(t, "application/octet-stream", doc.ContentType)
	assert.Contains(t, string(doc.Data), "Garage Nord")
	assert.Contains(t, string(doc.Data), "Ref "+snapshotID)
	assert.NotContains(t, string(doc.Data), "Garage Sud")

	receipt := doc.Receipt
	require.Len(t, receipt.Groups, 1)
	assert.Equal(t, snapshotID, receipt.SnapshotID)
	assert.Equal(t, "veh-42", receipt.Groups[0].VehicleRef)
	assert.Equal(t, "2024-03-15", receipt.Groups[0].Date)
	assertMoney(t, "75.00", receipt.Groups[0].Subtotal, "subtotal")
	assertMoney(t, "86.23", receipt.Groups[0].Total, "total")
	assert.Equal(t, ids[0], receipt.Groups[0].Items[0].ServiceRecordID)

	_, err = h.container.Receipts.PrintSnapshot(ctx, "no-such-snapshot", render.FormatJSON)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.container.Receipts.PrintSnapshot(ctx, snapshotID, "docx")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReceiptService_GetSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	_, snapshotID := checkoutSale(t, h)

	snap, err := h.container.Receipts.GetSnapshot(context.Background(), snapshotID)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotSourceCheckout, snap.Source)
	assert.Len(t, snap.LineItems, 2)
}
