package units_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/units"
)

func TestConvertPairs(t *testing.T) {
	cases := []struct {
		name string
		qty  float64
		from string
		to   string
		want float64
	}{
		{"identity", 2.5, units.Kilogram, units.Kilogram, 2.5},
		{"g to kg", 1500, units.Gram, units.Kilogram, 1.5},
		{"kg to g", 1.5, units.Kilogram, units.Gram, 1500},
		{"ml to L", 250, units.Millilitre, units.Litre, 0.25},
		{"L to ml", 0.25, units.Litre, units.Millilitre, 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := units.Convert(tc.qty, tc.from, tc.to)
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{units.Gram, units.Kilogram},
		{units.Kilogram, units.Gram},
		{units.Millilitre, units.Litre},
		{units.Litre, units.Millilitre},
	}
	for _, pair := range pairs {
		forward, err := units.Convert(7.3, pair[0], pair[1])
		require.NoError(t, err)
		back, err := units.Convert(forward, pair[1], pair[0])
		require.NoError(t, err)
		require.True(t, math.Abs(back-7.3) < 1e-9, "round trip %s<->%s drifted: %f", pair[0], pair[1], back)
	}
}

func TestConvertUnsupported(t *testing.T) {
	_, err := units.Convert(1, units.Kilogram, units.Litre)
	require.Error(t, err)
	var convErr *units.UnsupportedConversionError
	require.ErrorAs(t, err, &convErr)
	require.Equal(t, units.Kilogram, convErr.From)
	require.Equal(t, units.Litre, convErr.To)
	require.Contains(t, err.Error(), "kg")
	require.Contains(t, err.Error(), "L")

	_, err = units.Convert(1, units.Each, units.Kilogram)
	require.Error(t, err)
}

func TestUnitCostFor(t *testing.T) {
	// Stored at 1.20 per kg, BOM line in grams: one gram costs 0.0012.
	cost, err := units.UnitCostFor(1.20, units.Gram, units.Kilogram)
	require.NoError(t, err)
	require.InDelta(t, 0.0012, cost, 1e-9)

	// Same unit keeps the stored cost.
	cost, err = units.UnitCostFor(3.50, units.Kilogram, units.Kilogram)
	require.NoError(t, err)
	require.InDelta(t, 3.50, cost, 1e-9)

	_, err = units.UnitCostFor(1, units.Each, units.Litre)
	require.Error(t, err)
}
