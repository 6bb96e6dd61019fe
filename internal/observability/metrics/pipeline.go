package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	enrichmentFailures *prometheus.CounterVec
	catalogBreakerOpen *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "fisly",
			Subsystem:   "pipeline",
			Name:        "receipts_processed_total",
			Help:        "Total processed receipts by capture source and resulting status.",
			ConstLabels: constLabels,
		},
		[]string{"source", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "fisly",
			Subsystem:   "pipeline",
			Name:        "receipt_process_duration_seconds",
			Help:        "Receipt processing duration in seconds by capture source.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		},
		[]string{"source"},
	)
	enrichmentFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "fisly",
			Subsystem:   "catalog",
			Name:        "enrichment_failures_total",
			Help:        "Catalog calls that failed during item enrichment, by operation.",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)
	catalogBreakerOpen := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "fisly",
			Subsystem:   "catalog",
			Name:        "breaker_rejections_total",
			Help:        "Catalog calls rejected by an open circuit breaker, by operation.",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	registry.MustRegister(processTotal, processDuration, enrichmentFailures, catalogBreakerOpen)

	return &PipelineMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		enrichmentFailures: enrichmentFailures,
		catalogBreakerOpen: catalogBreakerOpen,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReceipt records one pipeline run. Failed runs are counted with the
// status "error".
func (m *PipelineMetrics) ObserveReceipt(source, status string, duration time.Duration, err error) {
	if err != nil {
		status = "error"
	}

	if status == "" {
		status = "unknown"
	}

	m.processTotal.WithLabelValues(source, status).Inc()
	m.processDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordEnrichmentFailure(operation string, breakerOpen bool) {
	m.enrichmentFailures.WithLabelValues(operation).Inc()

	if breakerOpen {
		m.catalogBreakerOpen.WithLabelValues(operation).Inc()
	}
}
