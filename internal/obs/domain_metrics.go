package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesIssuedTotal counts issued quotes by job type.
	QuotesIssuedTotal *prometheus.CounterVec
	// QuotePreviewTotal counts preview computations by outcome.
	QuotePreviewTotal *prometheus.CounterVec
	// FXSnapshotTotal counts rate lookups by snapshot source.
	FXSnapshotTotal *prometheus.CounterVec
	// EmailDeliveryTotal counts quote email outcomes.
	EmailDeliveryTotal *prometheus.CounterVec
	// SheetAppendTotal counts quote log sheet appends by outcome.
	SheetAppendTotal *prometheus.CounterVec
	// DeliveryAttemptLatency records delivery task latency in milliseconds.
	DeliveryAttemptLatency *prometheus.HistogramVec
	// DeliveryDLQTotal counts delivery tasks moved to the dead-letter queue.
	DeliveryDLQTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_issued_total",
			Help:      "Count of issued quotes by job type.",
		}, []string{"job_type"})
		QuotePreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_preview_total",
			Help:      "Count of quote preview computations by outcome.",
		}, []string{"result"})
		FXSnapshotTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_snapshot_total",
			Help:      "Count of FX rate snapshots served by source.",
		}, []string{"source"})
		EmailDeliveryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_delivery_total",
			Help:      "Count of quote email delivery outcomes.",
		}, []string{"status"})
		SheetAppendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_append_total",
			Help:      "Count of quote log sheet append outcomes.",
		}, []string{"result"})
		DeliveryAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_attempt_duration_ms",
			Help:      "Latency for delivery task attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"kind"})
		DeliveryDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_dlq_total",
			Help:      "Number of delivery tasks moved to the dead-letter queue.",
		})

		mustRegisterCollector(reg, QuotesIssuedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesIssuedTotal = v
			}
		})
		mustRegisterCollector(reg, QuotePreviewTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotePreviewTotal = v
			}
		})
		mustRegisterCollector(reg, FXSnapshotTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FXSnapshotTotal = v
			}
		})
		mustRegisterCollector(reg, EmailDeliveryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailDeliveryTotal = v
			}
		})
		mustRegisterCollector(reg, SheetAppendTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SheetAppendTotal = v
			}
		})
		mustRegisterCollector(reg, DeliveryAttemptLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				DeliveryAttemptLatency = v
			}
		})
		mustRegisterCollector(reg, DeliveryDLQTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				DeliveryDLQTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
