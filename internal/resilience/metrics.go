package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker metrics register eagerly on the default registry so every wrapped
// outbound target shows up even before its first trip.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bakery",
		Name:      "breaker_state",
		Help:      "Breaker state per target: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakery",
		Name:      "breaker_transition_total",
		Help:      "Breaker state transitions per target.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakery",
		Name:      "breaker_open_total",
		Help:      "Times a breaker tripped into the open state.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
