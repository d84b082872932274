package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/bakery-quote/internal/common"
	"github.com/noah-isme/bakery-quote/internal/pricing"
)

// Email delivery outcomes reported back to the caller.
const (
	StatusSent          = "sent"
	StatusSkipped       = "skipped"
	StatusNotConfigured = "not_configured"
)

// SheetHeaders is the column layout of the quote log, written once per
// workbook tab.
var SheetHeaders = []string{
	"timestamp",
	"quote_id",
	"quote_date",
	"valid_until",
	"company_name",
	"customer_name",
	"customer_email",
	"job_type",
	"quantity",
	"due_date",
	"currency",
	"labor_rate",
	"labor_hours",
	"materials_subtotal",
	"labor_cost",
	"subtotal",
	"markup_pct",
	"markup_value",
	"price_before_vat",
	"vat_pct",
	"vat_value",
	"total",
	"unit_price",
	"notes",
	"email_status",
	"warnings",
	"quote_md_path",
	"quote_txt_path",
	"line_items_json",
}

// Record carries everything about one issued quote that the delivery
// side needs. It is the payload of queued delivery tasks, so all fields
// must survive a JSON round trip.
type Record struct {
	QuoteID       string             `json:"quote_id"`
	QuoteDate     string             `json:"quote_date"`
	ValidUntil    string             `json:"valid_until"`
	CompanyName   string             `json:"company_name"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	JobType       string             `json:"job_type"`
	Quantity      int                `json:"quantity"`
	DueDate       string             `json:"due_date"`
	Currency      string             `json:"currency"`
	LaborRate     string             `json:"labor_rate"`
	LaborHours    float64            `json:"labor_hours"`
	Summary       pricing.Summary    `json:"summary"`
	MarkupPct     string             `json:"markup_pct"`
	VATPct        string             `json:"vat_pct"`
	Notes         string             `json:"notes"`
	EmailStatus   string             `json:"email_status"`
	Warnings      []string           `json:"warnings,omitempty"`
	QuoteMDPath   string             `json:"quote_md_path"`
	QuoteTxtPath  string             `json:"quote_txt_path"`
	Lines         []pricing.CostLine `json:"lines"`
}

// SheetRow flattens the record into the SheetHeaders column order.
func (r Record) SheetRow() []any {
	linesJSON, _ := json.Marshal(r.Lines)
	return []any{
		r.QuoteDate,
		r.QuoteID,
		r.QuoteDate,
		r.ValidUntil,
		r.CompanyName,
		r.CustomerName,
		r.CustomerEmail,
		r.JobType,
		r.Quantity,
		r.DueDate,
		r.Currency,
		r.LaborRate,
		r.LaborHours,
		r.Summary.MaterialsSubtotal,
		r.Summary.LaborCost,
		r.Summary.Subtotal,
		r.MarkupPct,
		r.Summary.MarkupValue,
		r.Summary.PriceBeforeVAT,
		r.VATPct,
		r.Summary.VATValue,
		r.Summary.Total,
		r.Summary.UnitPrice,
		r.Notes,
		r.EmailStatus,
		strings.Join(r.Warnings, ", "),
		r.QuoteMDPath,
		r.QuoteTxtPath,
		string(linesJSON),
	}
}

// DocumentPaths lists the generated files for this quote. The PDF
// lives next to the markdown document.
func (r Record) DocumentPaths() []string {
	base := strings.TrimSuffix(r.QuoteMDPath, ".md")
	return []string{r.QuoteMDPath, r.QuoteTxtPath, base + ".pdf"}
}

// Dispatcher fans an issued quote out to its delivery channels.
type Dispatcher struct {
	Email      common.EmailSender
	Sheet      *SheetLog
	SenderName string
	Logger     zerolog.Logger
}

// SendQuoteEmail mails the quote to the customer and returns the
// resulting status string. Failures are folded into the status rather
// than returned so a broken mail server never blocks quote creation.
func (d Dispatcher) SendQuoteEmail(rec Record, attachments []common.Attachment) string {
	if d.Email == nil {
		return StatusNotConfigured
	}
	subject := fmt.Sprintf("Quotation %s from %s", rec.QuoteID, d.SenderName)
	body := fmt.Sprintf(
		"Hello %s,\n\nThank you for your order. Please find your quotation attached.\n\n"+
			"Quote ID: %s\nProject: %s x %d\nDue date: %s\nTotal: %s %s\n\nRegards,\n%s\n",
		rec.CustomerName, rec.QuoteID, rec.JobType, rec.Quantity, rec.DueDate,
		rec.Summary.Total, rec.Currency, d.SenderName)

	if err := d.Email.Send(rec.CustomerEmail, subject, body, attachments); err != nil {
		d.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("quote email failed")
		return fmt.Sprintf("failed: %s", err.Error())
	}
	return StatusSent
}

// AppendSheet writes the record into the quote log. A nil sheet means
// logging is not configured and is not an error.
func (d Dispatcher) AppendSheet(rec Record) error {
	if d.Sheet == nil {
		return nil
	}
	return d.Sheet.Append(SheetHeaders, rec.SheetRow())
}
