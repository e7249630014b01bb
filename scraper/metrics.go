package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/book-analyzer/models"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	ErrorsTotal           *prometheus.CounterVec
	PagesTotal            *prometheus.CounterVec
	RecordsExtractedTotal prometheus.Counter
	RecordsDroppedTotal   prometheus.Counter
	ArtifactsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests, excluding pacing delays.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Catalog pages walked by outcome.",
		},
		[]string{"outcome"},
	)
	extracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_extracted_total",
			Help: "Total number of records extracted from catalog pages.",
		},
	)
	dropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_dropped_total",
			Help: "Catalog entries dropped for missing required fields.",
		},
	)
	artifacts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_export_artifacts_total",
			Help: "Export artifacts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, pages, extracted, dropped, artifacts)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		ErrorsTotal:           errorsTotal,
		PagesTotal:            pages,
		RecordsExtractedTotal: extracted,
		RecordsDroppedTotal:   dropped,
		ArtifactsTotal:        artifacts,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObservePage records a walked page and its extraction counts.
func (m *Metrics) ObservePage(page models.PageResult) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(string(page.Outcome)).Inc()
	m.RecordsExtractedTotal.Add(float64(page.Records))
	m.RecordsDroppedTotal.Add(float64(page.Dropped))
}

// ObserveExport records the outcome of every artifact.
func (m *Metrics) ObserveExport(result models.ExportResult) {
	if m == nil {
		return
	}
	for _, a := range result.Artifacts {
		outcome := "written"
		if a.Err != nil {
			outcome = "failed"
		}
		m.ArtifactsTotal.WithLabelValues(string(a.Kind), outcome).Inc()
	}
}
