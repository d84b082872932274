// Package quote orchestrates the full quotation flow: scale the bill of
// materials, price it, render the documents and hand the result to the
// delivery channels.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/common"
	"github.com/noah-isme/bakery-quote/internal/fx"
	"github.com/noah-isme/bakery-quote/internal/materials"
	"github.com/noah-isme/bakery-quote/internal/notify"
	"github.com/noah-isme/bakery-quote/internal/pricing"
	"github.com/noah-isme/bakery-quote/internal/queue"
	"github.com/noah-isme/bakery-quote/internal/render"
)

type bomEstimator interface {
	Estimate(ctx context.Context, jobType string, quantity int) (bom.Estimate, error)
	JobTypes(ctx context.Context) ([]string, bom.JobTypesSource)
}

type costSource interface {
	BatchGet(ctx context.Context, names []string) (map[string]materials.MaterialCost, error)
}

type ratesSource interface {
	Rates(ctx context.Context) fx.Snapshot
}

type enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Config wires the service's dependencies and quote defaults.
type Config struct {
	BOM        bomEstimator
	Materials  costSource
	FX         ratesSource
	Enqueue    enqueuer
	Dispatcher notify.Dispatcher
	Logger     zerolog.Logger

	CompanyName  string
	BaseCurrency string
	LaborRate    float64
	MarkupPct    float64
	VATPct       float64
	ValidDays    int
	TemplatePath string
	OutputDir    string

	DeliveryMaxAttempts int

	// Now is overridable for deterministic quote IDs in tests.
	Now func() time.Time
}

// Service computes and issues quotes.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ValidDays <= 0 {
		cfg.ValidDays = 14
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "out"
	}
	return &Service{cfg: cfg}
}

// Request is the customer-facing quote input. Pricing knobs accept
// either fractions or whole percentages.
type Request struct {
	JobType       string   `json:"job_type" validate:"required"`
	Quantity      int      `json:"quantity" validate:"required,gt=0"`
	DueDate       string   `json:"due_date" validate:"required"`
	CompanyName   string   `json:"company_name"`
	CustomerName  string   `json:"customer_name" validate:"required"`
	CustomerEmail string   `json:"customer_email" validate:"required,email"`
	Currency      string   `json:"currency" validate:"omitempty,len=3"`
	Notes         string   `json:"notes"`
	LaborRate     *float64 `json:"labor_rate" validate:"omitempty,gt=0"`
	MarkupPct     *float64 `json:"markup_pct" validate:"omitempty,gte=0"`
	VATPct        *float64 `json:"vat_pct" validate:"omitempty,gte=0"`
	SendEmail     bool     `json:"send_email"`
}

// Quote is the API shape of a computed or issued quote.
type Quote struct {
	QuoteID     string             `json:"quote_id"`
	QuoteDate   string             `json:"quote_date"`
	ValidUntil  string             `json:"valid_until"`
	JobType     string             `json:"job_type"`
	Quantity    int                `json:"quantity"`
	Currency    string             `json:"currency"`
	Lines       []pricing.CostLine `json:"lines"`
	Summary     pricing.Summary    `json:"summary"`
	Warnings    []string           `json:"warnings"`
	FXSource    string             `json:"fx_source"`
	Markdown    string             `json:"markdown,omitempty"`
	OutPath     string             `json:"out_path,omitempty"`
	OutTxtPath  string             `json:"out_txt_path,omitempty"`
	OutPDFPath  string             `json:"out_pdf_path,omitempty"`
	EmailStatus string             `json:"email_status,omitempty"`
}

// JobTypes lists the orderable products, with the source of the listing.
func (s *Service) JobTypes(ctx context.Context) ([]string, bom.JobTypesSource) {
	return s.cfg.BOM.JobTypes(ctx)
}

// Preview computes a quote without issuing it: no files are written and
// nothing is delivered.
func (s *Service) Preview(ctx context.Context, req Request) (Quote, error) {
	inputs, estimate, result, rates, err := s.compute(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	return s.assemble(inputs, estimate, result, rates), nil
}

// Create computes the quote, writes the markdown, text and PDF documents
// under the output directory and dispatches delivery. Email failures are
// reported in EmailStatus; delivery of the quote log is queued with
// retries and never fails the request.
func (s *Service) Create(ctx context.Context, req Request) (Quote, error) {
	inputs, estimate, result, rates, err := s.compute(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	q := s.assemble(inputs, estimate, result, rates)

	doc := s.document(q, inputs, result)
	tpl, err := render.LoadTemplate(s.cfg.TemplatePath)
	if err != nil {
		return Quote{}, err
	}
	q.Markdown = render.Markdown(tpl, doc.TemplateData())

	if err := s.writeDocuments(&q, doc); err != nil {
		return Quote{}, err
	}

	rec := s.record(q, inputs, result)
	q.EmailStatus = notify.StatusSkipped
	if req.SendEmail {
		q.EmailStatus = s.cfg.Dispatcher.SendQuoteEmail(rec, s.attachments(q))
		if strings.HasPrefix(q.EmailStatus, "failed") {
			s.queueEmailRetry(ctx, rec)
		}
	}
	rec.EmailStatus = q.EmailStatus

	s.queueSheetLog(ctx, rec)
	return q, nil
}

func (s *Service) compute(ctx context.Context, req Request) (pricing.Inputs, bom.Estimate, pricing.Result, fx.Snapshot, error) {
	inputs := s.resolveInputs(req)

	estimate, err := s.cfg.BOM.Estimate(ctx, inputs.JobType, inputs.Quantity)
	if err != nil {
		return inputs, bom.Estimate{}, pricing.Result{}, fx.Snapshot{}, err
	}

	names := make([]string, 0, len(estimate.Materials))
	for _, m := range estimate.Materials {
		names = append(names, m.Name)
	}
	costs, err := s.cfg.Materials.BatchGet(ctx, names)
	if err != nil {
		return inputs, estimate, pricing.Result{}, fx.Snapshot{}, fmt.Errorf("load material costs: %w", err)
	}

	rates := s.cfg.FX.Rates(ctx)
	result, err := pricing.Aggregate(inputs, s.cfg.BaseCurrency, estimate, costs, rates.Rates)
	if err != nil {
		return inputs, estimate, pricing.Result{}, rates, err
	}
	return inputs, estimate, result, rates, nil
}

func (s *Service) resolveInputs(req Request) pricing.Inputs {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.BaseCurrency
	}
	laborRate := s.cfg.LaborRate
	if req.LaborRate != nil {
		laborRate = *req.LaborRate
	}
	markup := s.cfg.MarkupPct
	if req.MarkupPct != nil {
		markup = pricing.ParsePercent(*req.MarkupPct)
	}
	vat := s.cfg.VATPct
	if req.VATPct != nil {
		vat = pricing.ParsePercent(*req.VATPct)
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		company = s.cfg.CompanyName
	}
	return pricing.Inputs{
		JobType:       req.JobType,
		Quantity:      req.Quantity,
		DueDate:       req.DueDate,
		CompanyName:   company,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Currency:      currency,
		LaborRate:     laborRate,
		MarkupPct:     markup,
		VATPct:        vat,
		Notes:         req.Notes,
	}
}

func (s *Service) assemble(inputs pricing.Inputs, estimate bom.Estimate, result pricing.Result, rates fx.Snapshot) Quote {
	issued := s.cfg.Now()
	validUntil := issued.AddDate(0, 0, s.cfg.ValidDays)
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return Quote{
		QuoteID:    NewID(issued, inputs.Quantity),
		QuoteDate:  issued.Format("2006-01-02"),
		ValidUntil: validUntil.Format("2006-01-02"),
		JobType:    inputs.JobType,
		Quantity:   inputs.Quantity,
		Currency:   inputs.Currency,
		Lines:      result.Lines,
		Summary:    result.Summary,
		Warnings:   warnings,
		FXSource:   string(rates.Source),
	}
}

func (s *Service) document(q Quote, inputs pricing.Inputs, result pricing.Result) render.Document {
	return render.Document{
		CompanyName:       inputs.CompanyName,
		QuoteID:           q.QuoteID,
		QuoteDate:         q.QuoteDate,
		ValidUntil:        q.ValidUntil,
		CustomerName:      inputs.CustomerName,
		JobType:           inputs.JobType,
		Quantity:          inputs.Quantity,
		DueDate:           inputs.DueDate,
		Currency:          inputs.Currency,
		Lines:             q.Lines,
		LaborRate:         pricing.FormatMoney(result.LaborRate),
		LaborHours:        q.Summary.LaborHours,
		LaborCost:         q.Summary.LaborCost,
		MaterialsSubtotal: q.Summary.MaterialsSubtotal,
		Subtotal:          q.Summary.Subtotal,
		MarkupPct:         formatPct(inputs.MarkupPct),
		MarkupValue:       q.Summary.MarkupValue,
		PriceBeforeVAT:    q.Summary.PriceBeforeVAT,
		VATPct:            formatPct(inputs.VATPct),
		VATValue:          q.Summary.VATValue,
		Total:             q.Summary.Total,
		Notes:             fmt.Sprintf("%s (Customer email: %s)", inputs.Notes, inputs.CustomerEmail),
	}
}

func (s *Service) record(q Quote, inputs pricing.Inputs, result pricing.Result) notify.Record {
	return notify.Record{
		QuoteID:       q.QuoteID,
		QuoteDate:     q.QuoteDate,
		ValidUntil:    q.ValidUntil,
		CompanyName:   inputs.CompanyName,
		CustomerName:  inputs.CustomerName,
		CustomerEmail: inputs.CustomerEmail,
		JobType:       inputs.JobType,
		Quantity:      inputs.Quantity,
		DueDate:       inputs.DueDate,
		Currency:      inputs.Currency,
		LaborRate:     pricing.FormatMoney(result.LaborRate),
		LaborHours:    q.Summary.LaborHours,
		Summary:       q.Summary,
		MarkupPct:     formatPct(inputs.MarkupPct),
		VATPct:        formatPct(inputs.VATPct),
		Notes:         inputs.Notes,
		Warnings:      q.Warnings,
		QuoteMDPath:   q.OutPath,
		QuoteTxtPath:  q.OutTxtPath,
		Lines:         q.Lines,
	}
}

func (s *Service) writeDocuments(q *Quote, doc render.Document) error {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("quote_%s", q.QuoteID))

	q.OutPath = base + ".md"
	if err := os.WriteFile(q.OutPath, []byte(q.Markdown), 0o644); err != nil {
		return fmt.Errorf("write quote markdown: %w", err)
	}

	q.OutTxtPath = base + ".txt"
	if err := os.WriteFile(q.OutTxtPath, []byte(render.Text(q.Markdown)), 0o644); err != nil {
		return fmt.Errorf("write quote text: %w", err)
	}

	pdf, err := render.PDF(doc)
	if err != nil {
		return err
	}
	q.OutPDFPath = base + ".pdf"
	if err := os.WriteFile(q.OutPDFPath, pdf, 0o644); err != nil {
		return fmt.Errorf("write quote pdf: %w", err)
	}
	return nil
}

func (s *Service) attachments(q Quote) []common.Attachment {
	var out []common.Attachment
	for _, f := range []struct {
		path string
		mime string
	}{
		{q.OutPath, "text/markdown"},
		{q.OutTxtPath, "text/plain"},
		{q.OutPDFPath, "application/pdf"},
	} {
		data, err := os.ReadFile(f.path)
		if err != nil {
			s.cfg.Logger.Warn().Err(err).Str("path", f.path).Msg("quote attachment unreadable")
			continue
		}
		out = append(out, common.Attachment{Filename: filepath.Base(f.path), MIME: f.mime, Data: data})
	}
	return out
}

func (s *Service) queueSheetLog(ctx context.Context, rec notify.Record) {
	if s.cfg.Enqueue == nil {
		if err := s.cfg.Dispatcher.AppendSheet(rec); err != nil {
			s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("quote log append failed")
		}
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("quote log payload encode failed")
		return
	}
	task := queue.Task{
		Kind:           queue.KindQuoteSheet,
		Payload:        payload,
		IdempotencyKey: rec.QuoteID,
		MaxAttempts:    s.cfg.DeliveryMaxAttempts,
	}
	if err := s.cfg.Enqueue.Enqueue(ctx, task); err != nil {
		s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("quote log enqueue failed")
		if err := s.cfg.Dispatcher.AppendSheet(rec); err != nil {
			s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("quote log append failed")
		}
	}
}

// queueEmailRetry hands a failed send to the delivery worker, which
// rereads the generated documents from disk.
func (s *Service) queueEmailRetry(ctx context.Context, rec notify.Record) {
	if s.cfg.Enqueue == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("email retry payload encode failed")
		return
	}
	task := queue.Task{
		Kind:           queue.KindQuoteEmail,
		Payload:        payload,
		IdempotencyKey: rec.QuoteID + ":email",
		MaxAttempts:    s.cfg.DeliveryMaxAttempts,
	}
	if err := s.cfg.Enqueue.Enqueue(ctx, task); err != nil {
		s.cfg.Logger.Error().Err(err).Str("quote_id", rec.QuoteID).Msg("email retry enqueue failed")
	}
}

func formatPct(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}
