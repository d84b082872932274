// Package units converts quantities between the small set of measurement
// units used by recipes and the material cost table.
package units

import "fmt"

// Units understood by the converter. "each" is a count and never converts.
const (
	Gram       = "g"
	Kilogram   = "kg"
	Millilitre = "ml"
	Litre      = "L"
	Each       = "each"
)

// UnsupportedConversionError is returned for unit pairs outside the
// supported mass and volume conversions.
type UnsupportedConversionError struct {
	From string
	To   string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// Convert converts qty from one unit to another. Matching units are an
// identity conversion.
func Convert(qty float64, from, to string) (float64, error) {
	if from == to {
		return qty, nil
	}
	switch {
	case from == Gram && to == Kilogram:
		return qty * 0.001, nil
	case from == Kilogram && to == Gram:
		return qty * 1000, nil
	case from == Millilitre && to == Litre:
		return qty / 1000.0, nil
	case from == Litre && to == Millilitre:
		return qty * 1000.0, nil
	}
	return 0, &UnsupportedConversionError{From: from, To: to}
}

// UnitCostFor converts a stored per-unit cost into the cost per BOM unit.
// The factor is the stored-unit equivalent of one BOM unit.
func UnitCostFor(storedCost float64, bomUnit, storedUnit string) (float64, error) {
	factor, err := Convert(1, bomUnit, storedUnit)
	if err != nil {
		return 0, err
	}
	return storedCost * factor, nil
}
