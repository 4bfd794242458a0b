package render

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"autoservice-billing-api/internal/models"
)

var (
	colorPrimary = &props.Color{Red: 33, Green: 37, Blue: 41}
	colorGray    = &props.Color{Red: 110, Green: 110, Blue: 110}
)

// PDFRenderer lays out an A4 receipt with one section per group
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return "pdf" }

// Render generates the PDF bytes
func (r *PDFRenderer) Render(receipt *models.PrintableReceipt) ([]byte, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is required")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Receipt", true).
		WithAuthor(receipt.BusinessInfo.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(businessHeaderRows(receipt.BusinessInfo)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.5}))

	for _, group := range receipt.Groups {
		m.AddRows(groupRows(group)...)
	}

	if len(receipt.Groups) > 1 {
		m.AddRows(line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.5}))
		m.AddRows(amountRow("Grand total", money(receipt.GrandTotal()), true))
	}

	footer := "Generated " + receipt.GeneratedAt.Format("2006-01-02 15:04 MST")
	if receipt.SnapshotID != "" {
		footer += "  |  Snapshot " + receipt.SnapshotID
	}
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New(footer, props.Text{Size: 7, Color: colorGray, Top: 3}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func businessHeaderRows(info models.BusinessInfo) []core.Row {
	rows := []core.Row{
		row.New(10).Add(col.New(12).Add(
			text.New(info.Name, props.Text{Style: fontstyle.Bold, Size: 14, Color: colorPrimary}),
		)),
	}

	contact := nonBlank(info.GetFormattedAddress(), info.Phone, info.Email)
	if len(contact) > 0 {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(strings.Join(contact, "  |  "), props.Text{Size: 8, Color: colorGray}),
		)))
	}

	for _, tn := range info.TaxNumbers {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(tn.Label+": "+tn.Value, props.Text{Size: 8, Color: colorGray}),
		)))
	}

	return rows
}

func groupRows(group models.PrintableGroup) []core.Row {
	rows := []core.Row{
		row.New(9).Add(col.New(12).Add(
			text.New(groupTitle(group), props.Text{Style: fontstyle.Bold, Size: 10, Top: 3}),
		)),
		row.New(6).Add(
			col.New(9).Add(text.New("Service", props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
			col.New(3).Add(text.New("Price", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1})),
		),
	}

	for _, item := range group.Items {
		label := item.ServiceName
		if item.Description != "" {
			label += " - " + item.Description
		}
		rows = append(rows, row.New(6).Add(
			col.New(9).Add(text.New(label, props.Text{Size: 8, Top: 1})),
			col.New(3).Add(text.New(money(item.Price), props.Text{Size: 8, Align: align.Right, Top: 1})),
		))
	}

	rows = append(rows,
		line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}),
		amountRow("Subtotal", money(group.Subtotal), false),
		amountRow("Federal tax", money(group.FederalTax), false),
		amountRow("Provincial tax", money(group.ProvincialTax), false),
		amountRow("Total", money(group.Total), true),
	)
	return rows
}

func amountRow(label, value string, emphasize bool) core.Row {
	style := fontstyle.Normal
	if emphasize {
		style = fontstyle.Bold
	}
	return row.New(5).Add(
		col.New(6),
		col.New(3).Add(text.New(label, props.Text{Style: style, Size: 9, Align: align.Right, Right: 2})),
		col.New(3).Add(text.New(value, props.Text{Style: style, Size: 9, Align: align.Right})),
	)
}

func nonBlank(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
