// Package render turns an assembled quote into its markdown, plain text
// and PDF representations.
package render

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/noah-isme/bakery-quote/internal/pricing"
)

//go:embed templates/quote_template.md
var defaultTemplate string

var sectionPattern = regexp.MustCompile(`(?s){{#lines}}(.*?){{/lines}}`)

// Document is the flattened view of a quote handed to the renderers.
// Monetary fields arrive pre-formatted; percentages are display strings
// like "30%".
type Document struct {
	CompanyName       string
	QuoteID           string
	QuoteDate         string
	ValidUntil        string
	CustomerName      string
	JobType           string
	Quantity          int
	DueDate           string
	Currency          string
	Lines             []pricing.CostLine
	LaborRate         string
	LaborHours        float64
	LaborCost         string
	MaterialsSubtotal string
	Subtotal          string
	MarkupPct         string
	MarkupValue       string
	PriceBeforeVAT    string
	VATPct            string
	VATValue          string
	Total             string
	Notes             string
}

// TemplateData flattens the document into the variable map the template
// engine substitutes from. Line items go under "lines" for the
// {{#lines}} section.
func (d Document) TemplateData() map[string]any {
	lines := make([]map[string]any, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, map[string]any{
			"name":      l.Name,
			"qty":       l.Qty,
			"unit":      l.Unit,
			"unit_cost": l.UnitCost,
			"line_cost": l.LineCost,
		})
	}
	return map[string]any{
		"company_name":       d.CompanyName,
		"quote_id":           d.QuoteID,
		"quote_date":         d.QuoteDate,
		"valid_until":        d.ValidUntil,
		"customer_name":      d.CustomerName,
		"job_type":           d.JobType,
		"quantity":           d.Quantity,
		"due_date":           d.DueDate,
		"currency":           d.Currency,
		"lines":              lines,
		"labor_rate":         d.LaborRate,
		"labor_hours":        d.LaborHours,
		"labor_cost":         d.LaborCost,
		"materials_subtotal": d.MaterialsSubtotal,
		"subtotal":           d.Subtotal,
		"markup_pct":         d.MarkupPct,
		"markup_value":       d.MarkupValue,
		"price_before_vat":   d.PriceBeforeVAT,
		"vat_pct":            d.VATPct,
		"vat_value":          d.VATValue,
		"total":              d.Total,
		"notes":              d.Notes,
	}
}

// LoadTemplate reads the quote template from path, or returns the
// embedded default when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read quote template: %w", err)
	}
	return string(raw), nil
}

// Markdown substitutes document variables into the template. Inside a
// {{#lines}} block each line item's fields shadow the top-level ones;
// unmatched placeholders are left as-is.
func Markdown(templateText string, data map[string]any) string {
	rendered := sectionPattern.ReplaceAllStringFunc(templateText, func(section string) string {
		block := sectionPattern.FindStringSubmatch(section)[1]
		items, _ := data["lines"].([]map[string]any)
		out := ""
		for _, item := range items {
			merged := make(map[string]any, len(data)+len(item))
			for k, v := range data {
				merged[k] = v
			}
			for k, v := range item {
				merged[k] = v
			}
			out += replaceVars(block, merged)
		}
		return out
	})
	return replaceVars(rendered, data)
}

func replaceVars(text string, context map[string]any) string {
	for key, value := range context {
		if key == "lines" {
			continue
		}
		text = strings.ReplaceAll(text, "{{"+key+"}}", fmt.Sprintf("%v", value))
	}
	return text
}
