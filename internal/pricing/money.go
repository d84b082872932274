package pricing

import "fmt"

// FormatMoney renders a monetary value with exactly two decimal places.
// Intermediate arithmetic keeps full float precision; this formatting is
// applied once, on the values handed to callers.
func FormatMoney(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
