package pricing

// ParsePercent normalizes a markup or VAT input to a fraction. Values
// above 1 are read as percentages and divided by 100; values at or below
// 1 are taken as already-fractional. An input of exactly 1 is therefore
// read as 100%, never 1%; callers meaning one percent must pass 0.01.
func ParsePercent(value float64) float64 {
	if value <= 1 {
		return value
	}
	return value / 100.0
}
