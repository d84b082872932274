// Package pricing combines a scaled bill of materials with material costs
// and FX rates into priced lines and a quote summary.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/fx"
	"github.com/noah-isme/bakery-quote/internal/materials"
	"github.com/noah-isme/bakery-quote/internal/units"
)

// Inputs are the per-quote parameters. MarkupPct and VATPct are
// normalized fractions (see ParsePercent).
type Inputs struct {
	JobType       string
	Quantity      int
	DueDate       string
	CompanyName   string
	CustomerName  string
	CustomerEmail string
	Currency      string
	LaborRate     float64
	MarkupPct     float64
	VATPct        float64
	Notes         string
}

// CostLine is one priced bill-of-materials line. Monetary fields are
// formatted to two decimals in the quote currency.
type CostLine struct {
	Name     string  `json:"name"`
	Qty      float64 `json:"qty"`
	Unit     string  `json:"unit"`
	UnitCost string  `json:"unit_cost"`
	LineCost string  `json:"line_cost"`
}

// Summary aggregates the computed quote totals.
type Summary struct {
	MaterialsSubtotal string  `json:"materials_subtotal"`
	LaborCost         string  `json:"labor_cost"`
	LaborHours        float64 `json:"labor_hours"`
	Subtotal          string  `json:"subtotal"`
	MarkupValue       string  `json:"markup_value"`
	PriceBeforeVAT    string  `json:"price_before_vat"`
	VATValue          string  `json:"vat_value"`
	Total             string  `json:"total"`
	UnitPrice         string  `json:"unit_price"`
}

// Result carries everything Aggregate computes. Warnings record currency
// degradations; LaborRate is the rate actually charged, which differs
// from the input when an FX conversion applied.
type Result struct {
	Lines     []CostLine
	Summary   Summary
	Warnings  []string
	LaborRate float64
}

// MissingMaterialsError aborts aggregation when any bill-of-materials
// entry has no row in the cost table. Pricing is all-or-nothing.
type MissingMaterialsError struct {
	Names []string
}

func (e *MissingMaterialsError) Error() string {
	return fmt.Sprintf("missing materials in cost table: %s", strings.Join(e.Names, ", "))
}

// Aggregate prices the estimate against the cost table. It is a pure
// function of its arguments: warnings and the adjusted labor rate come
// back in the Result instead of being written into the inputs.
//
// A material stored in a different currency than the quote is converted
// when a rate is available; when it is not, the stored cost is used
// unconverted and a warning records the degradation. The quote never
// aborts over a missing rate.
func Aggregate(inputs Inputs, baseCurrency string, estimate bom.Estimate, costs map[string]materials.MaterialCost, rates map[string]float64) (Result, error) {
	var missing []string
	for _, line := range estimate.Materials {
		if _, ok := costs[line.Name]; !ok {
			missing = append(missing, line.Name)
		}
	}
	if len(missing) > 0 {
		return Result{}, &MissingMaterialsError{Names: missing}
	}

	result := Result{
		Lines:     make([]CostLine, 0, len(estimate.Materials)),
		LaborRate: inputs.LaborRate,
	}

	var materialsSubtotal float64
	for _, line := range estimate.Materials {
		info := costs[line.Name]
		unitCost := info.UnitCost
		if info.Currency != inputs.Currency {
			converted, err := fx.Convert(unitCost, info.Currency, inputs.Currency, rates)
			if err != nil {
				var missingRate *fx.MissingRateError
				if !errors.As(err, &missingRate) {
					return Result{}, err
				}
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s priced in %s but quote currency is %s: %s",
					line.Name, info.Currency, inputs.Currency, err.Error()))
			} else {
				unitCost = converted
			}
		}
		perUnitCost, err := units.UnitCostFor(unitCost, line.Unit, info.Unit)
		if err != nil {
			return Result{}, fmt.Errorf("material %s: %w", line.Name, err)
		}
		lineCost := line.Qty * perUnitCost
		materialsSubtotal += lineCost
		result.Lines = append(result.Lines, CostLine{
			Name:     line.Name,
			Qty:      line.Qty,
			Unit:     line.Unit,
			UnitCost: FormatMoney(perUnitCost),
			LineCost: FormatMoney(lineCost),
		})
	}

	// The configured labor rate is expressed in the base currency and
	// follows the same warn-and-fallback policy as material costs.
	if inputs.Currency != baseCurrency {
		converted, err := fx.Convert(inputs.LaborRate, baseCurrency, inputs.Currency, rates)
		if err != nil {
			var missingRate *fx.MissingRateError
			if !errors.As(err, &missingRate) {
				return Result{}, err
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Labor rate in %s but quote currency is %s: %s",
				baseCurrency, inputs.Currency, err.Error()))
		} else {
			result.LaborRate = converted
		}
	}

	laborCost := estimate.LaborHours * result.LaborRate
	subtotal := materialsSubtotal + laborCost
	markupValue := subtotal * inputs.MarkupPct
	priceBeforeVAT := subtotal + markupValue
	vatValue := priceBeforeVAT * inputs.VATPct
	total := priceBeforeVAT + vatValue
	unitPrice := 0.0
	if inputs.Quantity > 0 {
		unitPrice = total / float64(inputs.Quantity)
	}

	result.Summary = Summary{
		MaterialsSubtotal: FormatMoney(materialsSubtotal),
		LaborCost:         FormatMoney(laborCost),
		LaborHours:        estimate.LaborHours,
		Subtotal:          FormatMoney(subtotal),
		MarkupValue:       FormatMoney(markupValue),
		PriceBeforeVAT:    FormatMoney(priceBeforeVAT),
		VATValue:          FormatMoney(vatValue),
		Total:             FormatMoney(total),
		UnitPrice:         FormatMoney(unitPrice),
	}
	return result, nil
}
