package obs

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesFinalizedTotal counts finalised invoices split by payment status.
	InvoicesFinalizedTotal *prometheus.CounterVec
	// StoreFallbackTotal counts operations served by the in-memory fallback store.
	StoreFallbackTotal *prometheus.CounterVec
	// DocumentsRenderedTotal counts PDF and XLSX renders by outcome.
	DocumentsRenderedTotal *prometheus.CounterVec
	// DomainEventsTotal counts emitted domain events per topic.
	DomainEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_finalized_total",
			Help:      "Count of finalised invoices by payment status.",
		}, []string{"paid"})
		StoreFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fallback_total",
			Help:      "Count of store operations served by the in-memory fallback.",
		}, []string{"store", "op"})
		DocumentsRenderedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_rendered_total",
			Help:      "Count of rendered invoice documents by format and result.",
		}, []string{"format", "result"})
		DomainEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Count of emitted domain events by topic.",
		}, []string{"topic"})

		for _, target := range []**prometheus.CounterVec{
			&InvoicesFinalizedTotal,
			&StoreFallbackTotal,
			&DocumentsRenderedTotal,
			&DomainEventsTotal,
		} {
			target := target
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
	})
}

// RecordInvoiceFinalized increments the finalised invoice counter.
func RecordInvoiceFinalized(paid bool) {
	if InvoicesFinalizedTotal != nil {
		InvoicesFinalizedTotal.WithLabelValues(strconv.FormatBool(paid)).Inc()
	}
}

// RecordStoreFallback increments the fallback counter for a store operation.
func RecordStoreFallback(store, op string) {
	if StoreFallbackTotal != nil {
		StoreFallbackTotal.WithLabelValues(store, op).Inc()
	}
}

// RecordDocumentRendered increments the render counter.
func RecordDocumentRendered(format string, err error) {
	if DocumentsRenderedTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	DocumentsRenderedTotal.WithLabelValues(format, result).Inc()
}

// RecordDomainEvent increments the per-topic event counter.
func RecordDomainEvent(topic string) {
	if DomainEventsTotal != nil {
		DomainEventsTotal.WithLabelValues(topic).Inc()
	}
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
