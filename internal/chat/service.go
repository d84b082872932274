package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/fx"
	"github.com/noah-isme/bakery-quote/internal/materials"
	"github.com/noah-isme/bakery-quote/internal/pricing"
	"github.com/noah-isme/bakery-quote/internal/quote"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var quantityPattern = regexp.MustCompile(`(\d+)`)

type completer interface {
	Complete(ctx context.Context, messages []Message, tools []Tool, toolChoice string) (Message, error)
}

type quoteService interface {
	JobTypes(ctx context.Context) ([]string, bom.JobTypesSource)
	Preview(ctx context.Context, req quote.Request) (quote.Quote, error)
	Create(ctx context.Context, req quote.Request) (quote.Quote, error)
}

type materialSource interface {
	Get(ctx context.Context, name string) (materials.MaterialCost, error)
	List(ctx context.Context) ([]materials.MaterialCost, error)
}

type ratesSource interface {
	Rates(ctx context.Context) fx.Snapshot
}

// Config wires the assistant to the LLM and the quoting back end.
type Config struct {
	LLM          completer
	Quotes       quoteService
	Materials    materialSource
	FX           ratesSource
	BaseCurrency string
	MarkupPct    float64
	VATPct       float64
	Logger       zerolog.Logger
	// Today overrides the clock used for due date resolution.
	Today func() time.Time
}

// Service runs one assistant turn: cheap deterministic heuristics
// first, then the model with function tools over the quote service.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.Today == nil {
		cfg.Today = Today
	}
	return &Service{cfg: cfg}
}

// Response is the assistant's answer for one turn. Quote is set only
// when a confirmed generate_quote produced files.
type Response struct {
	Reply string        `json:"reply"`
	Quote *QuotePayload `json:"quote,omitempty"`
}

// QuotePayload points the UI at the generated documents.
type QuotePayload struct {
	QuoteID     string `json:"quote_id"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	MDFilename  string `json:"md_filename"`
	TxtFilename string `json:"txt_filename"`
	PDFFilename string `json:"pdf_filename"`
}

type quotePreview struct {
	Summary   pricing.Summary
	Currency  string
	MarkupPct float64
	VATPct    float64
	Warnings  []string
}

// Respond handles one chat turn for the given conversation history.
func (s *Service) Respond(ctx context.Context, messages []Message) Response {
	jobTypes, _ := s.cfg.Quotes.JobTypes(ctx)
	rates := s.cfg.FX.Rates(ctx)

	userText := lastByRole(messages, "user")
	assistantText := lastByRole(messages, "assistant")

	if userText != "" && assistantText != "" && requestedDueDate(assistantText) {
		return s.handleDueDateReply(userText)
	}
	if userText != "" && assistantText != "" && requestedEmail(assistantText) {
		if emailPattern.MatchString(strings.TrimSpace(userText)) {
			return Response{Reply: "Thanks! What currency should I use for the quote?"}
		}
		return Response{Reply: "Please provide a valid email address (name@domain.tld)."}
	}
	if reply, ok := s.priceIntent(ctx, messages, userText, jobTypes); ok {
		return Response{Reply: reply}
	}

	system := Message{Role: "system", Content: systemPrompt(jobTypes, rates.Rates, s.cfg.BaseCurrency)}
	convo := append([]Message{system}, messages...)

	msg, err := s.cfg.LLM.Complete(ctx, convo, toolDefinitions(), "auto")
	if err != nil {
		return Response{Reply: fmt.Sprintf("Error: %v", err)}
	}

	if len(msg.ToolCalls) > 0 {
		return s.runTools(ctx, convo, msg)
	}
	return Response{Reply: scrubContent(msg.Content)}
}

func (s *Service) handleDueDateReply(userText string) Response {
	today := s.cfg.Today()
	normalized, ok := NormalizeDueDate(userText, today)
	if !ok {
		return Response{Reply: "Please provide the due date in YYYY-MM-DD format."}
	}
	parsed, err := time.Parse("2006-01-02", normalized)
	if err != nil {
		return Response{Reply: "Please provide the due date in YYYY-MM-DD format."}
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if parsed.Before(day) {
		return Response{Reply: "That date is in the past. Please provide a future date in YYYY-MM-DD."}
	}
	return Response{Reply: fmt.Sprintf("Got it: %s. Is that correct?", normalized)}
}

// priceIntent answers "how much" style questions without a model round
// trip, using the quote preview or a direct material lookup.
func (s *Service) priceIntent(ctx context.Context, messages []Message, userText string, jobTypes []string) (string, bool) {
	if userText == "" {
		return "", false
	}
	lowered := strings.ToLower(userText)
	if !strings.Contains(lowered, "price") && !strings.Contains(lowered, "cost") && !strings.Contains(lowered, "how much") {
		return "", false
	}

	jobType := extractJobType(userText, jobTypes)
	if jobType == "" {
		jobType = jobTypeFromHistory(messages, jobTypes)
	}
	if jobType != "" {
		qty := extractQuantity(userText)
		if qty <= 0 {
			qty = 1
		}
		q, err := s.cfg.Quotes.Preview(ctx, quote.Request{
			JobType:       jobType,
			Quantity:      qty,
			DueDate:       "TBD",
			CustomerName:  "Customer",
			CustomerEmail: "customer@example.com",
		})
		if err != nil {
			return fmt.Sprintf("Pricing estimate failed: %v", err), true
		}
		return fmt.Sprintf("Estimated unit price for %d %s: %s %s.", qty, jobType, q.Summary.UnitPrice, q.Currency), true
	}

	mats, err := s.cfg.Materials.List(ctx)
	if err != nil {
		return "", false
	}
	for _, mat := range mats {
		if !strings.Contains(lowered, mat.Name) {
			continue
		}
		found, err := s.cfg.Materials.Get(ctx, mat.Name)
		if err != nil {
			return "", false
		}
		cost := strconv.FormatFloat(found.UnitCost, 'f', -1, 64)
		return fmt.Sprintf("%s costs %s %s per %s.", found.Name, cost, found.Currency, found.Unit), true
	}
	return "", false
}

func (s *Service) runTools(ctx context.Context, convo []Message, msg Message) Response {
	var (
		toolMessages []Message
		payload      *QuotePayload
		preview      *quotePreview
	)

	for _, call := range msg.ToolCalls {
		args := parseArgs(call.Function.Arguments)
		s.cfg.Logger.Debug().Str("tool", call.Function.Name).Msg("chat tool call")

		var content any
		switch call.Function.Name {
		case toolMaterialLookup:
			content = s.lookupMaterial(ctx, argString(args, "name", ""))
		case toolListMaterials:
			content = s.listMaterials(ctx)
		case toolEstimateJob:
			content = s.estimateJob(ctx, args)
		case toolGenerateQuote:
			content = s.generateQuote(ctx, args, &payload, &preview)
		default:
			content = map[string]string{"error": fmt.Sprintf("unknown tool %s", call.Function.Name)}
		}

		body, err := json.Marshal(content)
		if err != nil {
			body = []byte(`{"error":"internal error"}`)
		}
		toolMessages = append(toolMessages, Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    string(body),
		})
	}

	if preview != nil && payload == nil {
		return Response{Reply: previewReply(*preview)}
	}

	followConvo := append(append(convo, msg), toolMessages...)
	follow, err := s.cfg.LLM.Complete(ctx, followConvo, nil, "")
	reply := "Done. Let me know if you need anything else."
	if err == nil && strings.TrimSpace(follow.Content) != "" {
		reply = follow.Content
	}
	return Response{Reply: reply, Quote: payload}
}

func (s *Service) lookupMaterial(ctx context.Context, name string) any {
	mat, err := s.cfg.Materials.Get(ctx, name)
	if errors.Is(err, materials.ErrNotFound) {
		return map[string]string{"error": "Material not found"}
	}
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return mat
}

func (s *Service) listMaterials(ctx context.Context) any {
	mats, err := s.cfg.Materials.List(ctx)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return mats
}

func (s *Service) estimateJob(ctx context.Context, args map[string]any) any {
	req := quote.Request{
		JobType:       argString(args, "job_type", ""),
		Quantity:      argInt(args, "quantity"),
		DueDate:       "TBD",
		CustomerName:  "Customer",
		CustomerEmail: "customer@example.com",
		Currency:      argString(args, "currency", ""),
		LaborRate:     argFloatPtr(args, "labor_rate"),
		MarkupPct:     argFloatPtr(args, "markup_pct"),
		VATPct:        argFloatPtr(args, "vat_pct"),
	}
	q, err := s.cfg.Quotes.Preview(ctx, req)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return map[string]any{"summary": q.Summary, "lines": q.Lines}
}

func (s *Service) generateQuote(ctx context.Context, args map[string]any, payload **QuotePayload, preview **quotePreview) any {
	dueDate := ResolveDueDate(argString(args, "due_date", ""), s.cfg.Today())
	if strings.TrimSpace(dueDate) == "" {
		dueDate = "TBD"
	}
	req := quote.Request{
		JobType:       argString(args, "job_type", ""),
		Quantity:      argInt(args, "quantity"),
		DueDate:       dueDate,
		CompanyName:   argString(args, "company_name", ""),
		CustomerName:  argString(args, "customer_name", "Customer"),
		CustomerEmail: argString(args, "customer_email", ""),
		Currency:      argString(args, "currency", ""),
		Notes:         argString(args, "notes", "Please confirm delivery details."),
		LaborRate:     argFloatPtr(args, "labor_rate"),
		MarkupPct:     argFloatPtr(args, "markup_pct"),
		VATPct:        argFloatPtr(args, "vat_pct"),
		SendEmail:     argBool(args, "send_email"),
	}

	if !argBool(args, "confirm") {
		q, err := s.cfg.Quotes.Preview(ctx, req)
		if err != nil {
			return map[string]string{"error": err.Error()}
		}
		*preview = &quotePreview{
			Summary:   q.Summary,
			Currency:  q.Currency,
			MarkupPct: s.displayPct(req.MarkupPct, s.cfg.MarkupPct),
			VATPct:    s.displayPct(req.VATPct, s.cfg.VATPct),
			Warnings:  q.Warnings,
		}
		return map[string]any{
			"summary":            q.Summary,
			"currency":           q.Currency,
			"needs_confirmation": true,
		}
	}

	q, err := s.cfg.Quotes.Create(ctx, req)
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("chat quote generation failed")
		return map[string]string{"error": err.Error()}
	}
	*payload = &QuotePayload{
		QuoteID:     q.QuoteID,
		Total:       q.Summary.Total,
		Currency:    q.Currency,
		MDFilename:  filepath.Base(q.OutPath),
		TxtFilename: filepath.Base(q.OutTxtPath),
		PDFFilename: filepath.Base(q.OutPDFPath),
	}
	return map[string]any{
		"quote_id":     q.QuoteID,
		"total":        q.Summary.Total,
		"currency":     q.Currency,
		"out_path":     q.OutPath,
		"out_txt_path": q.OutTxtPath,
		"out_pdf_path": q.OutPDFPath,
		"email_status": q.EmailStatus,
	}
}

func (s *Service) displayPct(override *float64, fallback float64) float64 {
	if override != nil {
		return pricing.ParsePercent(*override)
	}
	return fallback
}

func previewReply(p quotePreview) string {
	sum := p.Summary
	lines := []string{
		"Here's your quote summary before I generate the files:",
		fmt.Sprintf("- Materials subtotal: %s %s", sum.MaterialsSubtotal, p.Currency),
		fmt.Sprintf("- Labor cost: %s %s", sum.LaborCost, p.Currency),
		fmt.Sprintf("- Subtotal: %s %s", sum.Subtotal, p.Currency),
		fmt.Sprintf("- Markup (%.0f%%): %s %s", p.MarkupPct*100, sum.MarkupValue, p.Currency),
		fmt.Sprintf("- Price before VAT: %s %s", sum.PriceBeforeVAT, p.Currency),
		fmt.Sprintf("- VAT (%.0f%%): %s %s", p.VATPct*100, sum.VATValue, p.Currency),
		fmt.Sprintf("- Total: %s %s", sum.Total, p.Currency),
		fmt.Sprintf("- Unit price: %s %s", sum.UnitPrice, p.Currency),
		"Reply 'confirm' to generate the quote.",
	}
	if len(p.Warnings) > 0 {
		lines = append(lines, "Warnings:")
		for _, w := range p.Warnings {
			lines = append(lines, "- "+w)
		}
	}
	return strings.Join(lines, "\n")
}

// scrubContent rewrites model replies that leak provider details,
// fake download links, or knowledge cutoff disclaimers.
func scrubContent(content string) string {
	lowered := strings.ToLower(content)
	if strings.Contains(lowered, "model") && (strings.Contains(lowered, "mistral") || strings.Contains(lowered, "codestral")) {
		return "I'm focused on helping with your quote. What would you like to order?"
	}
	if strings.Contains(lowered, "command:download_file") || strings.Contains(lowered, "[markdown]") ||
		strings.Contains(lowered, "[text]") || strings.Contains(lowered, "[pdf]") {
		return "Your quote is ready. Use the download buttons below."
	}
	if strings.Contains(lowered, "only assist") && strings.Contains(lowered, "2023") {
		return "Thanks! I've noted the date. What quantity do you need, and which item should I quote?"
	}
	if strings.Contains(lowered, "last update") || strings.Contains(lowered, "knowledge cutoff") {
		return "Got it. What date should I set for the order, and what quantity do you need?"
	}
	return content
}

func lastByRole(messages []Message, role string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return messages[i].Content
		}
	}
	return ""
}

var dueDatePhrases = []string{
	"due date", "delivery date", "ready", "when would you like",
	"when should", "what date", "yyyy-mm-dd", "future date",
}

func requestedDueDate(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range dueDatePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func requestedEmail(text string) bool {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "email address") || strings.Contains(lowered, "e-mail address") {
		return true
	}
	if strings.Contains(lowered, "your email") || strings.Contains(lowered, "your e-mail") {
		return true
	}
	if strings.Contains(lowered, "emailed to") || strings.Contains(lowered, "email the") ||
		strings.Contains(lowered, "send the quote") {
		return false
	}
	return strings.Contains(lowered, "email") && strings.Contains(lowered, "address")
}

func extractJobType(text string, jobTypes []string) string {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "cupcake") {
		return "cupcakes"
	}
	for _, jt := range jobTypes {
		if strings.Contains(lowered, jt) {
			return jt
		}
	}
	return ""
}

func jobTypeFromHistory(messages []Message, jobTypes []string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		if jt := extractJobType(messages[i].Content, jobTypes); jt != "" {
			return jt
		}
	}
	return ""
}

func extractQuantity(text string) int {
	match := quantityPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

func parseArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func argString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func argFloatPtr(args map[string]any, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func argBool(args map[string]any, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}
