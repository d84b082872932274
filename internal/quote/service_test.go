package quote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/bom"
	"github.com/noah-isme/bakery-quote/internal/common"
	"github.com/noah-isme/bakery-quote/internal/fx"
	"github.com/noah-isme/bakery-quote/internal/materials"
	"github.com/noah-isme/bakery-quote/internal/notify"
	"github.com/noah-isme/bakery-quote/internal/pricing"
	"github.com/noah-isme/bakery-quote/internal/queue"
)

type localBOM struct{}

func (localBOM) Estimate(_ context.Context, jobType string, quantity int) (bom.Estimate, error) {
	return bom.Scale(jobType, quantity)
}

func (localBOM) JobTypes(context.Context) ([]string, bom.JobTypesSource) {
	return bom.JobTypes(), bom.JobTypesLive
}

type mapCosts map[string]materials.MaterialCost

func (m mapCosts) BatchGet(_ context.Context, names []string) (map[string]materials.MaterialCost, error) {
	out := make(map[string]materials.MaterialCost, len(names))
	for _, n := range names {
		if c, ok := m[n]; ok {
			out[n] = c
		}
	}
	return out, nil
}

type staticRates map[string]float64

func (r staticRates) Rates(context.Context) fx.Snapshot {
	if len(r) == 0 {
		return fx.Snapshot{Base: "GBP", Source: fx.SourceDisabled}
	}
	return fx.Snapshot{Base: "GBP", Source: fx.SourceStatic, Rates: r}
}

type captureEnqueuer struct {
	tasks []queue.Task
}

func (c *captureEnqueuer) Enqueue(_ context.Context, t queue.Task) error {
	c.tasks = append(c.tasks, t)
	return nil
}

func testCosts() mapCosts {
	return mapCosts{
		"flour":         {Name: "flour", Unit: "kg", UnitCost: 1.20, Currency: "GBP"},
		"sugar":         {Name: "sugar", Unit: "kg", UnitCost: 0.90, Currency: "GBP"},
		"butter":        {Name: "butter", Unit: "kg", UnitCost: 3.50, Currency: "GBP"},
		"eggs":          {Name: "eggs", Unit: "each", UnitCost: 0.20, Currency: "GBP"},
		"milk":          {Name: "milk", Unit: "L", UnitCost: 1.10, Currency: "GBP"},
		"vanilla":       {Name: "vanilla", Unit: "ml", UnitCost: 0.05, Currency: "GBP"},
		"baking_powder": {Name: "baking_powder", Unit: "kg", UnitCost: 2.00, Currency: "GBP"},
	}
}

func testService(t *testing.T, email *common.InMemoryEmail, enq enqueuer) *Service {
	t.Helper()
	var sender common.EmailSender
	if email != nil {
		sender = email
	}
	return NewService(Config{
		BOM:       localBOM{},
		Materials: testCosts(),
		FX:        staticRates(nil),
		Enqueue:   enq,
		Dispatcher: notify.Dispatcher{
			Email:      sender,
			SenderName: "Bakery Nation",
			Logger:     zerolog.Nop(),
		},
		Logger:              zerolog.Nop(),
		CompanyName:         "Bakery Nation",
		BaseCurrency:        "GBP",
		LaborRate:           15,
		MarkupPct:           0.30,
		VATPct:              0.20,
		ValidDays:           14,
		OutputDir:           filepath.Join(t.TempDir(), "out"),
		DeliveryMaxAttempts: 3,
		Now: func() time.Time {
			return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
		},
	})
}

func cupcakesRequest() Request {
	return Request{
		JobType:       "cupcakes",
		Quantity:      100,
		DueDate:       "2026-09-05",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Notes:         "deliver before noon",
	}
}

func TestPreviewComputesWithoutSideEffects(t *testing.T) {
	svc := testService(t, nil, nil)

	q, err := svc.Preview(context.Background(), cupcakesRequest())
	require.NoError(t, err)

	assert.Equal(t, "Q-20260828-100", q.QuoteID)
	assert.Equal(t, "2026-08-28", q.QuoteDate)
	assert.Equal(t, "2026-09-11", q.ValidUntil)
	assert.Equal(t, "GBP", q.Currency)
	assert.Equal(t, "194.53", q.Summary.Total)
	assert.Equal(t, "1.95", q.Summary.UnitPrice)
	assert.Equal(t, string(fx.SourceDisabled), q.FXSource)
	assert.Empty(t, q.Markdown)
	assert.Empty(t, q.OutPath)
	assert.Empty(t, q.EmailStatus)
}

func TestCreateWritesDocumentsAndQueuesDelivery(t *testing.T) {
	email := &common.InMemoryEmail{}
	enq := &captureEnqueuer{}
	svc := testService(t, email, enq)

	req := cupcakesRequest()
	req.SendEmail = true
	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, notify.StatusSent, q.EmailStatus)
	require.Len(t, email.Outbox, 1)
	assert.Equal(t, "ada@example.com", email.Outbox[0].To)
	assert.Len(t, email.Outbox[0].Attachments, 3)

	for _, path := range []string{q.OutPath, q.OutTxtPath, q.OutPDFPath} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
	assert.Contains(t, q.Markdown, "Q-20260828-100")
	assert.Contains(t, q.Markdown, "194.53 GBP")
	assert.NotContains(t, q.Markdown, "{{")

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, queue.KindQuoteSheet, enq.tasks[0].Kind)
	assert.Equal(t, "Q-20260828-100", enq.tasks[0].IdempotencyKey)
	assert.Equal(t, 3, enq.tasks[0].MaxAttempts)
}

func TestCreateSkipsEmailWhenNotRequested(t *testing.T) {
	email := &common.InMemoryEmail{}
	svc := testService(t, email, &captureEnqueuer{})

	q, err := svc.Create(context.Background(), cupcakesRequest())
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSkipped, q.EmailStatus)
	assert.Empty(t, email.Outbox)
}

func TestCreateReportsNotConfiguredEmail(t *testing.T) {
	svc := testService(t, nil, &captureEnqueuer{})

	req := cupcakesRequest()
	req.SendEmail = true
	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, notify.StatusNotConfigured, q.EmailStatus)
}

func TestPreviewMissingMaterials(t *testing.T) {
	svc := testService(t, nil, nil)
	svc.cfg.Materials = mapCosts{}

	_, err := svc.Preview(context.Background(), cupcakesRequest())
	var missing *pricing.MissingMaterialsError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Names, 7)
}

func TestPreviewRequestOverrides(t *testing.T) {
	svc := testService(t, nil, nil)

	markup := 50.0
	vat := 0.0
	req := cupcakesRequest()
	req.MarkupPct = &markup
	req.VATPct = &vat
	q, err := svc.Preview(context.Background(), req)
	require.NoError(t, err)

	// subtotal 124.70, markup 50% -> 62.35, no VAT
	assert.Equal(t, "62.35", q.Summary.MarkupValue)
	assert.Equal(t, "0.00", q.Summary.VATValue)
	assert.Equal(t, "187.05", q.Summary.Total)
}

func TestNewIDPadsQuantity(t *testing.T) {
	issued := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Q-20260828-007", NewID(issued, 7))
	assert.Equal(t, "Q-20260828-1200", NewID(issued, 1200))
}
