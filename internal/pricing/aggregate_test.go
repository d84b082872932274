package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/materials"
)

func gbpCosts() map[string]materials.MaterialCost {
	return map[string]materials.MaterialCost{
		"flour":         {Name: "flour", Unit: "kg", UnitCost: 1.20, Currency: "GBP"},
		"sugar":         {Name: "sugar", Unit: "kg", UnitCost: 0.90, Currency: "GBP"},
		"butter":        {Name: "butter", Unit: "kg", UnitCost: 3.50, Currency: "GBP"},
		"eggs":          {Name: "eggs", Unit: "each", UnitCost: 0.20, Currency: "GBP"},
		"milk":          {Name: "milk", Unit: "L", UnitCost: 1.10, Currency: "GBP"},
		"vanilla":       {Name: "vanilla", Unit: "ml", UnitCost: 0.05, Currency: "GBP"},
		"baking_powder": {Name: "baking_powder", Unit: "kg", UnitCost: 2.00, Currency: "GBP"},
	}
}

func cupcakesEstimate(t *testing.T, quantity int) bom.Estimate {
	t.Helper()
	est, err := bom.Scale("cupcakes", quantity)
	require.NoError(t, err)
	return est
}

func TestAggregateCupcakes100GBP(t *testing.T) {
	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  100,
		Currency:  "GBP",
		LaborRate: 15,
		MarkupPct: 0.30,
		VATPct:    0.20,
	}

	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 100), gbpCosts(), nil)
	require.NoError(t, err)

	require.Empty(t, res.Warnings)
	assert.Equal(t, 15.0, res.LaborRate)
	require.Len(t, res.Lines, 7)

	// flour 8kg * 1.20 = 9.60, eggs 50 * 0.20 = 10.00
	assert.Equal(t, "9.60", res.Lines[0].LineCost)
	assert.Equal(t, "10.00", res.Lines[3].LineCost)

	assert.Equal(t, "49.70", res.Summary.MaterialsSubtotal)
	assert.Equal(t, "75.00", res.Summary.LaborCost)
	assert.Equal(t, 5.0, res.Summary.LaborHours)
	assert.Equal(t, "124.70", res.Summary.Subtotal)
	assert.Equal(t, "37.41", res.Summary.MarkupValue)
	assert.Equal(t, "162.11", res.Summary.PriceBeforeVAT)
	assert.Equal(t, "32.42", res.Summary.VATValue)
	assert.Equal(t, "194.53", res.Summary.Total)
	assert.Equal(t, "1.95", res.Summary.UnitPrice)
}

func TestAggregateMissingMaterials(t *testing.T) {
	costs := gbpCosts()
	delete(costs, "sugar")
	delete(costs, "vanilla")

	inputs := Inputs{JobType: "cupcakes", Quantity: 10, Currency: "GBP", LaborRate: 15}
	_, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 10), costs, nil)
	require.Error(t, err)

	var missing *MissingMaterialsError
	require.ErrorAs(t, err, &missing)
	// names come back in bill-of-materials order
	assert.Equal(t, []string{"sugar", "vanilla"}, missing.Names)
	assert.Contains(t, err.Error(), "sugar, vanilla")
}

func TestAggregateConvertsForeignCosts(t *testing.T) {
	costs := gbpCosts()
	costs["vanilla"] = materials.MaterialCost{Name: "vanilla", Unit: "ml", UnitCost: 0.06, Currency: "USD"}
	rates := map[string]float64{"GBP": 1.0, "USD": 1.25}

	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  100,
		Currency:  "GBP",
		LaborRate: 15,
	}
	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 100), costs, rates)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	// 0.06 USD -> 0.048 GBP per ml, 100 ml -> 4.80
	assert.Equal(t, "0.05", res.Lines[5].UnitCost)
	assert.Equal(t, "4.80", res.Lines[5].LineCost)
}

func TestAggregateWarnsOnMissingRate(t *testing.T) {
	costs := gbpCosts()
	costs["butter"] = materials.MaterialCost{Name: "butter", Unit: "kg", UnitCost: 3.50, Currency: "EUR"}

	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  100,
		Currency:  "GBP",
		LaborRate: 15,
		MarkupPct: 0.30,
		VATPct:    0.20,
	}
	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 100), costs, nil)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "butter priced in EUR but quote currency is GBP")

	// cost is charged unconverted, totals unchanged from the GBP scenario
	assert.Equal(t, "14.00", res.Lines[2].LineCost)
	assert.Equal(t, "194.53", res.Summary.Total)
}

func TestAggregateWarnsPerAffectedLine(t *testing.T) {
	costs := map[string]materials.MaterialCost{
		"flour":         {Name: "flour", Unit: "kg", UnitCost: 1.50, Currency: "USD"},
		"sugar":         {Name: "sugar", Unit: "kg", UnitCost: 1.10, Currency: "USD"},
		"butter":        {Name: "butter", Unit: "kg", UnitCost: 4.40, Currency: "EUR"},
		"eggs":          {Name: "eggs", Unit: "each", UnitCost: 0.25, Currency: "USD"},
		"milk":          {Name: "milk", Unit: "L", UnitCost: 1.40, Currency: "EUR"},
		"vanilla":       {Name: "vanilla", Unit: "ml", UnitCost: 0.06, Currency: "USD"},
		"baking_powder": {Name: "baking_powder", Unit: "kg", UnitCost: 2.50, Currency: "EUR"},
	}

	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  50,
		Currency:  "USD",
		LaborRate: 15,
	}
	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 50), costs, nil)
	require.NoError(t, err)

	// one warning per mismatched material plus one for the labor rate
	require.Len(t, res.Warnings, 4)
	joined := strings.Join(res.Warnings, "\n")
	for _, name := range []string{"butter", "milk", "baking_powder"} {
		assert.Contains(t, joined, name+" priced in EUR but quote currency is USD")
	}
	assert.Contains(t, joined, "Labor rate in GBP but quote currency is USD")
	assert.NotContains(t, joined, "flour")
}

func TestAggregateWarnsOnLaborRateConversion(t *testing.T) {
	costs := map[string]materials.MaterialCost{
		"flour":         {Name: "flour", Unit: "kg", UnitCost: 1.50, Currency: "USD"},
		"sugar":         {Name: "sugar", Unit: "kg", UnitCost: 1.10, Currency: "USD"},
		"butter":        {Name: "butter", Unit: "kg", UnitCost: 4.40, Currency: "USD"},
		"eggs":          {Name: "eggs", Unit: "each", UnitCost: 0.25, Currency: "USD"},
		"milk":          {Name: "milk", Unit: "L", UnitCost: 1.40, Currency: "USD"},
		"vanilla":       {Name: "vanilla", Unit: "ml", UnitCost: 0.06, Currency: "USD"},
		"baking_powder": {Name: "baking_powder", Unit: "kg", UnitCost: 2.50, Currency: "USD"},
	}

	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  50,
		Currency:  "USD",
		LaborRate: 15,
	}
	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 50), costs, nil)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Labor rate in GBP but quote currency is USD")
	// rate charged unconverted when no rate is available
	assert.Equal(t, 15.0, res.LaborRate)
}

func TestAggregateLaborRateConverted(t *testing.T) {
	rates := map[string]float64{"GBP": 1.0, "USD": 1.25}
	costs := map[string]materials.MaterialCost{
		"flour":         {Name: "flour", Unit: "kg", UnitCost: 1.50, Currency: "USD"},
		"sugar":         {Name: "sugar", Unit: "kg", UnitCost: 1.10, Currency: "USD"},
		"butter":        {Name: "butter", Unit: "kg", UnitCost: 4.40, Currency: "USD"},
		"eggs":          {Name: "eggs", Unit: "each", UnitCost: 0.25, Currency: "USD"},
		"milk":          {Name: "milk", Unit: "L", UnitCost: 1.40, Currency: "USD"},
		"vanilla":       {Name: "vanilla", Unit: "ml", UnitCost: 0.06, Currency: "USD"},
		"baking_powder": {Name: "baking_powder", Unit: "kg", UnitCost: 2.50, Currency: "USD"},
	}

	inputs := Inputs{
		JobType:   "cupcakes",
		Quantity:  50,
		Currency:  "USD",
		LaborRate: 15,
	}
	res, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 50), costs, rates)
	require.NoError(t, err)

	require.Empty(t, res.Warnings)
	assert.InDelta(t, 18.75, res.LaborRate, 1e-9)
	// labor hours for 50 cupcakes = 2.5, cost = 2.5 * 18.75
	assert.Equal(t, "46.88", res.Summary.LaborCost)
}

func TestAggregateUnsupportedUnitConversion(t *testing.T) {
	costs := gbpCosts()
	costs["milk"] = materials.MaterialCost{Name: "milk", Unit: "kg", UnitCost: 1.10, Currency: "GBP"}

	inputs := Inputs{JobType: "cupcakes", Quantity: 10, Currency: "GBP", LaborRate: 15}
	_, err := Aggregate(inputs, "GBP", cupcakesEstimate(t, 10), costs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "material milk")
}

func TestAggregateZeroQuantityUnitPrice(t *testing.T) {
	inputs := Inputs{JobType: "cupcakes", Quantity: 0, Currency: "GBP", LaborRate: 15}
	est := bom.Estimate{JobType: "cupcakes", Quantity: 0}
	res, err := Aggregate(inputs, "GBP", est, map[string]materials.MaterialCost{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.00", res.Summary.UnitPrice)
}

func TestMissingMaterialsErrorIs(t *testing.T) {
	err := error(&MissingMaterialsError{Names: []string{"cocoa"}})
	var target *MissingMaterialsError
	assert.True(t, errors.As(err, &target))
}
