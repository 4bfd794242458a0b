package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrintableItem is one charged line on a printed receipt
type PrintableItem struct {
	ServiceRecordID string          `json:"service_record_id,omitempty"`
	ServiceName     string          `json:"service_name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
}

// PrintableGroup is one receipt section: the services done on one vehicle on one day.
// All amounts are already rounded to cents; renderers print them as-is.
type PrintableGroup struct {
	VehicleRef    string          `json:"vehicle_ref"`
	Date          string          `json:"date"`
	Items         []PrintableItem `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	FederalTax    decimal.Decimal `json:"federal_tax"`
	ProvincialTax decimal.Decimal `json:"provincial_tax"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	TaxSource     string          `json:"tax_source"`
}

// PrintableReceipt is the structure handed to renderers
type PrintableReceipt struct {
	BusinessInfo BusinessInfo     `json:"business_info"`
	Groups       []PrintableGroup `json:"groups"`
	SnapshotID   string           `json:"snapshot_id,omitempty"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// GrandTotal sums the group totals
func (p *PrintableReceipt) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, g := range p.Groups {
		total = total.Add(g.Total)
	}
	return total
}

// ItemCount returns the number of printed lines across all groups
func (p *PrintableReceipt) ItemCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Items)
	}
	return n
}
