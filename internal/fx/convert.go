// Package fx supplies currency exchange rates relative to a single base
// currency and converts amounts between currencies using them.
package fx

import (
	"fmt"
	"strings"
)

// MissingRateError is returned when a conversion needs a rate that is not
// in the snapshot. Callers downgrade it to a quote warning.
type MissingRateError struct {
	From string
	To   string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing FX rate for %s or %s", e.From, e.To)
}

// Convert converts an amount between currencies. Both rates are expressed
// against the same base, so the conversion is a simple ratio.
func Convert(amount float64, from, to string, rates map[string]float64) (float64, error) {
	fromCur := strings.ToUpper(from)
	toCur := strings.ToUpper(to)
	if fromCur == toCur {
		return amount, nil
	}
	fromRate, okFrom := rates[fromCur]
	toRate, okTo := rates[toCur]
	if !okFrom || !okTo {
		return 0, &MissingRateError{From: fromCur, To: toCur}
	}
	return amount * (toRate / fromRate), nil
}
