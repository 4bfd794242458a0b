// Package render turns a PrintableReceipt into a document for a print target.
// Renderers only lay out the already rounded amounts they are given.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"autoservice-billing-api/internal/models"
)

// Format identifies an output document type
type Format string

const (
	FormatJSON    Format = "json"
	FormatPDF     Format = "pdf"
	FormatThermal Format = "thermal"
)

// ParseFormat converts a query value into a Format; blank means JSON
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatPDF, FormatThermal:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported receipt format %q (want json, pdf or thermal)", s)
	}
}

// Renderer produces one document format
type Renderer interface {
	Render(receipt *models.PrintableReceipt) ([]byte, error)
	ContentType() string
	Extension() string
}

// Options configures the renderers built by New
type Options struct {
	ThermalWidth int
}

// New returns the renderer for format
func New(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	case FormatThermal:
		return NewThermalRenderer(opts.ThermalWidth), nil
	default:
		return nil, fmt.Errorf("unsupported receipt format %q", format)
	}
}

// JSONRenderer emits the receipt structure itself
type JSONRenderer struct{}

func (JSONRenderer) Render(receipt *models.PrintableReceipt) ([]byte, error) {
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}
	return data, nil
}

func (JSONRenderer) ContentType() string { return "application/json" }

func (JSONRenderer) Extension() string { return "json" }

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func groupTitle(g models.PrintableGroup) string {
	vehicle := g.VehicleRef
	if vehicle == "" || vehicle == models.NoneKey {
		vehicle = "No vehicle"
	}
	date := g.Date
	if date == "" || date == models.NoneKey {
		date = "No date"
	}
	return vehicle + " / " + date
}
