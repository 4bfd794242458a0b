package services

import (
	"context"

	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/render"
)

// SettingsService manages the business profile and its tax settings
type SettingsService interface {
	GetSettings(ctx context.Context) (*models.BusinessSettings, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.BusinessSettings, error)

	// CurrentTaxConfig resolves the current settings. It may be served from a short-lived
	// cache and is meant for live quotes only, never for persisting a sale.
	CurrentTaxConfig(ctx context.Context) (models.TaxConfiguration, error)

	// EnsureSeeded writes seed when no settings row exists yet
	EnsureSeeded(ctx context.Context, seed *models.BusinessSettings) (bool, error)
}

// PricingService exposes the pricing core for live display
type PricingService interface {
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResult, error)
	Decompose(ctx context.Context, req *DecomposeRequest) (*DecomposeResult, error)
	TaxConfiguration(ctx context.Context) (*TaxConfigurationView, error)
}

// SnapshotWriter freezes a finalized sale for later reprints
type SnapshotWriter interface {
	// WriteSnapshot returns the new snapshot id. Failures wrap ErrPersistenceUnavailable
	// and must never undo the sale they describe.
	WriteSnapshot(ctx context.Context, in SnapshotInput) (string, error)
}

// CheckoutService finalizes a cart into service records
type CheckoutService interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
}

// ServiceRecordService manages historical charges
type ServiceRecordService interface {
	RecordService(ctx context.Context, req *RecordServiceRequest) (*RecordServiceResult, error)
	GetRecord(ctx context.Context, id string) (*models.ServiceRecord, error)
	ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResult, error)
	DeleteRecord(ctx context.Context, id string) error
}

// ReceiptService builds and prints receipts from historical records
type ReceiptService interface {
	BuildReceipt(ctx context.Context, req *BuildReceiptRequest) (*models.PrintableReceipt, error)
	Print(ctx context.Context, req *PrintRequest) (*RenderedReceipt, error)
	GetSnapshot(ctx context.Context, id string) (*models.ReceiptSnapshot, error)
	PrintSnapshot(ctx context.Context, id string, format render.Format) (*RenderedReceipt, error)
}

// Settings types

// UpdateSettingsRequest replaces the business profile. Absent rates are stored as absent.
type UpdateSettingsRequest struct {
	Name       string             `json:"name" validate:"required,max=255"`
	Address    string             `json:"address" validate:"max=500"`
	Phone      string             `json:"phone" validate:"max=50"`
	Email      *string            `json:"email,omitempty" validate:"omitempty,email"`
	TaxNumbers []models.TaxNumber `json:"tax_numbers" validate:"dive"`
	RatesInput
}

// RatesInput carries raw tax settings as a client sends them
type RatesInput struct {
	TaxRate           *decimal.Decimal `json:"tax_rate,omitempty"`
	FederalTaxRate    *decimal.Decimal `json:"federal_tax_rate,omitempty"`
	ProvincialTaxRate *decimal.Decimal `json:"provincial_tax_rate,omitempty"`
}

// Raw converts the input into the stored representation
func (r RatesInput) Raw() models.RawTaxSettings {
	return models.RawTaxSettings{
		TaxRate:           r.TaxRate,
		FederalTaxRate:    r.FederalTaxRate,
		ProvincialTaxRate: r.ProvincialTaxRate,
	}
}

// IsEmpty reports whether no rate was supplied
func (r RatesInput) IsEmpty() bool {
	return r.TaxRate == nil && r.FederalTaxRate == nil && r.ProvincialTaxRate == nil
}

// Pricing types

// LineItemInput is one cart entry
type LineItemInput struct {
	ID        string              `json:"id,omitempty"`
	Name      string              `json:"name" validate:"required,max=255"`
	BasePrice decimal.Decimal     `json:"base_price"`
	Kind      models.LineItemKind `json:"kind" validate:"required"`
}

// QuoteRequest prices a cart. Rates, when given, replace the current settings.
type QuoteRequest struct {
	Items []LineItemInput `json:"items" validate:"dive"`
	Rates *RatesInput     `json:"rates,omitempty"`
}

// QuoteResult is the rounded breakdown of a cart plus the per-item charged prices
type QuoteResult struct {
	Pricing          pricing.PricingResult   `json:"pricing"`
	ItemPrices       []decimal.Decimal       `json:"item_prices"`
	TaxConfiguration models.TaxConfiguration `json:"tax_configuration"`
}

// DecomposeRequest splits a charged total. Rates, when given, replace the current settings.
type DecomposeRequest struct {
	Total decimal.Decimal `json:"total"`
	Rates *RatesInput     `json:"rates,omitempty"`
}

// DecomposeResult is the rounded reverse breakdown
type DecomposeResult struct {
	Total            decimal.Decimal         `json:"total"`
	Breakdown        pricing.Breakdown       `json:"breakdown"`
	TaxConfiguration models.TaxConfiguration `json:"tax_configuration"`
}

// TaxConfigurationView shows how the stored settings resolve
type TaxConfigurationView struct {
	Raw          models.RawTaxSettings   `json:"raw"`
	Resolved     models.TaxConfiguration `json:"resolved"`
	CombinedRate decimal.Decimal         `json:"combined_rate"`
}

// Checkout types

// CheckoutRequest finalizes a cart. PerformedDate is YYYY-MM-DD and defaults to today.
type CheckoutRequest struct {
	Items         []LineItemInput `json:"items" validate:"required,min=1,dive"`
	VehicleRef    *string         `json:"vehicle_ref,omitempty" validate:"omitempty,max=100"`
	CustomerRef   *string         `json:"customer_ref,omitempty" validate:"omitempty,max=100"`
	PerformedDate *string         `json:"performed_date,omitempty"`
}

// CheckoutResult reports the created records. SnapshotID is nil when the snapshot could not be saved.
type CheckoutResult struct {
	Records          []*models.ServiceRecord `json:"records"`
	Pricing          pricing.PricingResult   `json:"pricing"`
	TaxConfiguration models.TaxConfiguration `json:"tax_configuration"`
	SnapshotID       *string                 `json:"snapshot_id"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// SnapshotInput is the finalized sale handed to the snapshot writer
type SnapshotInput struct {
	Source   models.SnapshotSource
	Records  []*models.ServiceRecord
	Kinds    []models.LineItemKind
	Config   models.TaxConfiguration
	Business models.BusinessInfo
}

// Service record types

// RecordServiceRequest enters one already-charged, tax-inclusive service
type RecordServiceRequest struct {
	ServiceName        string          `json:"service_name" validate:"required,max=255"`
	ServiceDescription *string         `json:"service_description,omitempty" validate:"omitempty,max=1000"`
	Price              decimal.Decimal `json:"price"`
	VehicleRef         *string         `json:"vehicle_ref,omitempty" validate:"omitempty,max=100"`
	CustomerRef        *string         `json:"customer_ref,omitempty" validate:"omitempty,max=100"`
	PerformedDate      *string         `json:"performed_date,omitempty"`
}

// RecordServiceResult is the created record and its appointment snapshot, if saved
type RecordServiceResult struct {
	Record     *models.ServiceRecord `json:"record"`
	SnapshotID *string               `json:"snapshot_id"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// ListRecordsRequest filters service history. Dates are YYYY-MM-DD.
type ListRecordsRequest struct {
	CustomerRef string `form:"customer_ref" validate:"max=100"`
	VehicleRef  string `form:"vehicle_ref" validate:"max=100"`
	From        string `form:"from"`
	To          string `form:"to"`
	Limit       int    `form:"limit" validate:"gte=0,lte=500"`
	Offset      int    `form:"offset" validate:"gte=0"`
}

// ListRecordsResult is one page of service history
type ListRecordsResult struct {
	Records    []*models.ServiceRecord  `json:"records"`
	Pagination *models.PaginationResult `json:"pagination"`
}

// Receipt types

// BuildReceiptRequest selects records to consolidate. TaxSource is snapshot (default) or current.
type BuildReceiptRequest struct {
	ServiceRecordIDs []string          `json:"service_record_ids" validate:"dive,required"`
	TaxSource        pricing.TaxSource `json:"tax_source,omitempty" validate:"omitempty,oneof=snapshot current"`
}

// PrintRequest renders a consolidated receipt
type PrintRequest struct {
	BuildReceiptRequest
	Format render.Format `json:"format,omitempty"`
}

// RenderedReceipt is a rendered document ready to send to a print target
type RenderedReceipt struct {
	Format      render.Format
	ContentType string
	Filename    string
	Data        []byte
	ArchiveKey  string
	Receipt     *models.PrintableReceipt
}
