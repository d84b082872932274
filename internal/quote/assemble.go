package quote

import (
	"fmt"
	"time"
)

// NewID builds the quote identifier from the issue date and order
// quantity, e.g. Q-20260828-100. Quantities under 100 are zero padded.
func NewID(issued time.Time, quantity int) string {
	return fmt.Sprintf("Q-%s-%03d", issued.Format("20060102"), quantity)
}
