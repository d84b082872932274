// Package bom holds the fixed per-unit bills of materials and scales them
// to a requested quantity. It also exposes the estimate HTTP service and
// the client the quote service consumes it through.
package bom

import (
	"fmt"
	"math"

	"github.com/noah-isme/bakery-quote/internal/units"
)

// Line is one scaled material requirement.
type Line struct {
	Name string  `json:"name"`
	Unit string  `json:"unit"`
	Qty  float64 `json:"qty"`
}

// Estimate is the scaled bill of materials for a job.
type Estimate struct {
	JobType    string  `json:"job_type"`
	Quantity   int     `json:"quantity"`
	Materials  []Line  `json:"materials"`
	LaborHours float64 `json:"labor_hours"`
}

// UnknownJobTypeError is returned when the requested job type has no recipe.
type UnknownJobTypeError struct {
	JobType string
}

func (e *UnknownJobTypeError) Error() string {
	return fmt.Sprintf("unknown job_type %q", e.JobType)
}

type recipe struct {
	materials  []Line
	laborHours float64
}

// Per-unit recipes. baking_powder and salt are stored as kg so gram
// amounts appear as fractions; pastry_box is a box of ~6 pastries.
var recipes = map[string]recipe{
	"cupcakes": {
		materials: []Line{
			{Name: "flour", Unit: units.Kilogram, Qty: 0.08},
			{Name: "sugar", Unit: units.Kilogram, Qty: 0.06},
			{Name: "butter", Unit: units.Kilogram, Qty: 0.04},
			{Name: "eggs", Unit: units.Each, Qty: 0.5},
			{Name: "milk", Unit: units.Litre, Qty: 0.05},
			{Name: "vanilla", Unit: units.Millilitre, Qty: 1.0},
			{Name: "baking_powder", Unit: units.Kilogram, Qty: 0.001},
		},
		laborHours: 0.05,
	},
	"cake": {
		materials: []Line{
			{Name: "flour", Unit: units.Kilogram, Qty: 0.50},
			{Name: "sugar", Unit: units.Kilogram, Qty: 0.40},
			{Name: "butter", Unit: units.Kilogram, Qty: 0.30},
			{Name: "eggs", Unit: units.Each, Qty: 4.0},
			{Name: "milk", Unit: units.Litre, Qty: 0.20},
			{Name: "cocoa", Unit: units.Kilogram, Qty: 0.05},
			{Name: "vanilla", Unit: units.Millilitre, Qty: 5.0},
			{Name: "baking_powder", Unit: units.Kilogram, Qty: 0.005},
		},
		laborHours: 0.80,
	},
	"pastry_box": {
		materials: []Line{
			{Name: "flour", Unit: units.Kilogram, Qty: 0.40},
			{Name: "butter", Unit: units.Kilogram, Qty: 0.35},
			{Name: "sugar", Unit: units.Kilogram, Qty: 0.10},
			{Name: "eggs", Unit: units.Each, Qty: 1.0},
			{Name: "milk", Unit: units.Litre, Qty: 0.10},
			{Name: "salt", Unit: units.Kilogram, Qty: 0.002},
			{Name: "yeast", Unit: units.Kilogram, Qty: 0.005},
		},
		laborHours: 0.60,
	},
}

// jobTypeOrder keeps the API listing stable.
var jobTypeOrder = []string{"cupcakes", "cake", "pastry_box"}

// JobTypes returns the known job types in a stable order.
func JobTypes() []string {
	out := make([]string, len(jobTypeOrder))
	copy(out, jobTypeOrder)
	return out
}

// FallbackJobTypes is the job-type list used for input validation when the
// estimate service is unreachable.
func FallbackJobTypes() []string {
	return JobTypes()
}

// Scale linearly scales the per-unit recipe by quantity. Scaled quantities
// are rounded before aggregation so printed and priced values agree:
// kg and L to 3 decimals, ml and counts to 1 decimal, labor to 3 decimals.
func Scale(jobType string, quantity int) (Estimate, error) {
	r, ok := recipes[jobType]
	if !ok {
		return Estimate{}, &UnknownJobTypeError{JobType: jobType}
	}
	scaled := make([]Line, 0, len(r.materials))
	for _, m := range r.materials {
		qty := m.Qty * float64(quantity)
		switch m.Unit {
		case units.Kilogram, units.Litre:
			qty = roundTo(qty, 3)
		default:
			qty = roundTo(qty, 1)
		}
		scaled = append(scaled, Line{Name: m.Name, Unit: m.Unit, Qty: qty})
	}
	return Estimate{
		JobType:    jobType,
		Quantity:   quantity,
		Materials:  scaled,
		LaborHours: roundTo(r.laborHours*float64(quantity), 3),
	}, nil
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
