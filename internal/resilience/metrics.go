package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors, labelled by the guarded store.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gst_invoice",
			Subsystem: "store_breaker",
			Name:      "state",
			Help:      "Breaker state per store: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"store"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gst_invoice",
			Subsystem: "store_breaker",
			Name:      "transitions_total",
			Help:      "Breaker state changes per store.",
		},
		[]string{"store", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gst_invoice",
			Subsystem: "store_breaker",
			Name:      "opened_total",
			Help:      "Times a store breaker opened and requests went to the fallback.",
		},
		[]string{"store"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
