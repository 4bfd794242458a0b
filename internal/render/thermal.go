package render

import (
	"fmt"

	"autoservice-billing-api/internal/models"
)

// DefaultThermalWidth fits 80mm paper with font A
const DefaultThermalWidth = 42

const minThermalWidth = 24

// ThermalRenderer produces an ESC/POS byte stream for receipt printers
type ThermalRenderer struct {
	width int
}

// NewThermalRenderer creates a renderer for the given character width
func NewThermalRenderer(width int) *ThermalRenderer {
	if width <= 0 {
		width = DefaultThermalWidth
	}
	if width < minThermalWidth {
		width = minThermalWidth
	}
	return &ThermalRenderer{width: width}
}

func (r *ThermalRenderer) ContentType() string { return "application/octet-stream" }

func (r *ThermalRenderer) Extension() string { return "bin" }

// Render builds the ESC/POS stream, one block per group, then cuts the paper
func (r *ThermalRenderer) Render(receipt *models.PrintableReceipt) ([]byte, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is required")
	}

	d := newESCPOSDocument(r.width)
	info := receipt.BusinessInfo

	d.align(alignCenter).bold(true).text(info.Name).bold(false)
	if info.Address != "" {
		d.text(info.GetFormattedAddress())
	}
	if info.Phone != "" {
		d.text(info.Phone)
	}
	for _, tn := range info.TaxNumbers {
		d.text(tn.Label + ": " + tn.Value)
	}
	d.align(alignLeft)

	for _, group := range receipt.Groups {
		d.separator('=')
		d.bold(true).text(groupTitle(group)).bold(false)
		d.separator('-')
		for _, item := range group.Items {
			d.keyValue(item.ServiceName, money(item.Price))
		}
		d.separator('-')
		d.keyValue("Subtotal", money(group.Subtotal))
		d.keyValue("Federal tax", money(group.FederalTax))
		d.keyValue("Provincial tax", money(group.ProvincialTax))
		d.bold(true).keyValue("TOTAL", money(group.Total)).bold(false)
	}

	if len(receipt.Groups) > 1 {
		d.separator('=')
		d.bold(true).keyValue("GRAND TOTAL", money(receipt.GrandTotal())).bold(false)
	}

	d.separator('=')
	d.align(alignCenter).text(receipt.GeneratedAt.Format("2006-01-02 15:04"))
	if receipt.SnapshotID != "" {
		d.text("Ref " + receipt.SnapshotID)
	}
	d.text("Thank you!")
	d.feed(3).cut()

	return d.bytes(), nil
}
