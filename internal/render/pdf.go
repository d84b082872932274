package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PDF renders the quote document as A4 PDF bytes.
func PDF(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		Build()

	m := maroto.New(cfg)

	addQuoteHeader(m, doc)
	addLinesTable(m, doc)
	addTotals(m, doc)
	addNotes(m, doc)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate quote PDF: %w", err)
	}
	return out.GetBytes(), nil
}

func addQuoteHeader(m core.Maroto, doc Document) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("%s - Quotation", doc.CompanyName), props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Left,
				}),
			),
		),
	)

	meta := []string{
		fmt.Sprintf("Quote ID: %s", doc.QuoteID),
		fmt.Sprintf("Date: %s", doc.QuoteDate),
		fmt.Sprintf("Valid Until: %s", doc.ValidUntil),
		fmt.Sprintf("Customer: %s", doc.CustomerName),
		fmt.Sprintf("Project: %s x %d", doc.JobType, doc.Quantity),
		fmt.Sprintf("Delivery / Due: %s", doc.DueDate),
	}
	for _, line := range meta {
		m.AddRows(
			row.New(6).Add(
				col.New(12).Add(text.New(line, props.Text{Size: 10})),
			),
		)
	}
	m.AddRows(row.New(4))
}

func addLinesTable(m core.Maroto, doc Document) {
	m.AddRows(
		row.New(8).Add(
			col.New(12).Add(
				text.New("Bill of Materials & Labor", props.Text{
					Size:  12,
					Style: fontstyle.Bold,
				}),
			),
		),
	)

	headerText := props.Text{Size: 9, Style: fontstyle.Bold}
	headerRight := headerText
	headerRight.Align = align.Right
	m.AddRows(
		row.New(7).Add(
			col.New(5).Add(text.New("Item", headerText)),
			col.New(2).Add(text.New("Qty", headerRight)),
			col.New(1).Add(text.New("Unit", headerText)),
			col.New(2).Add(text.New(fmt.Sprintf("Unit Cost (%s)", doc.Currency), headerRight)),
			col.New(2).Add(text.New("Line Cost", headerRight)),
		),
	)

	bodyText := props.Text{Size: 9}
	bodyRight := bodyText
	bodyRight.Align = align.Right
	for _, line := range doc.Lines {
		m.AddRows(
			row.New(6).Add(
				col.New(5).Add(text.New(line.Name, bodyText)),
				col.New(2).Add(text.New(formatQty(line.Qty), bodyRight)),
				col.New(1).Add(text.New(line.Unit, bodyText)),
				col.New(2).Add(text.New(line.UnitCost, bodyRight)),
				col.New(2).Add(text.New(line.LineCost, bodyRight)),
			),
		)
	}

	laborText := props.Text{Size: 9, Style: fontstyle.Bold}
	laborRight := laborText
	laborRight.Align = align.Right
	m.AddRows(
		row.New(6).Add(
			col.New(5).Add(text.New(fmt.Sprintf("Labor (@ %s/h)", doc.LaborRate), laborText)),
			col.New(2).Add(text.New(formatQty(doc.LaborHours), laborRight)),
			col.New(1).Add(text.New("h", laborText)),
			col.New(2).Add(text.New(doc.LaborRate, laborRight)),
			col.New(2).Add(text.New(doc.LaborCost, laborRight)),
		),
	)
	m.AddRows(row.New(4))
}

func addTotals(m core.Maroto, doc Document) {
	totals := []struct {
		label string
		value string
	}{
		{"Materials Subtotal", doc.MaterialsSubtotal},
		{"Labor Subtotal", doc.LaborCost},
		{"Subtotal (pre-markup)", doc.Subtotal},
		{fmt.Sprintf("Markup (%s)", doc.MarkupPct), doc.MarkupValue},
		{"Price before VAT", doc.PriceBeforeVAT},
		{fmt.Sprintf("VAT (%s)", doc.VATPct), doc.VATValue},
		{"Total", doc.Total},
	}
	for _, t := range totals {
		m.AddRows(
			row.New(6).Add(
				col.New(12).Add(
					text.New(fmt.Sprintf("%s: %s %s", t.label, t.value, doc.Currency), props.Text{Size: 10}),
				),
			),
		)
	}
}

func addNotes(m core.Maroto, doc Document) {
	m.AddRows(row.New(4))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(text.New("Notes:", props.Text{Size: 10, Style: fontstyle.Bold})),
		),
	)
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(text.New(doc.Notes, props.Text{Size: 10})),
		),
	)
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New("Thank you for your business!", props.Text{
					Size:  9,
					Style: fontstyle.Italic,
				}),
			),
		),
	)
}

func formatQty(qty float64) string {
	if qty == float64(int64(qty)) {
		return fmt.Sprintf("%.0f", qty)
	}
	return fmt.Sprintf("%g", qty)
}
