// Package metrics provides Prometheus metrics for the address resolver
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolveDuration    prometheus.Histogram
	BatchJobsTotal     *prometheus.CounterVec
	BatchLinesTotal    prometheus.Counter
	CacheLookupsTotal  *prometheus.CounterVec
	CatalogUnits       *prometheus.GaugeVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on reg.
// When reg is also a Gatherer (e.g. *prometheus.Registry) it backs Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	m.ResolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "address_resolutions_total",
			Help: "Total number of address resolutions by status",
		},
		[]string{"status"},
	)

	m.ResolveDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "address_resolve_duration_seconds",
			Help:    "Duration of single address resolution in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	m.BatchJobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "address_batch_jobs_total",
			Help: "Total number of batch jobs by outcome",
		},
		[]string{"outcome"},
	)

	m.BatchLinesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "address_batch_lines_total",
			Help: "Total number of lines processed by batch jobs",
		},
	)

	m.CacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "address_cache_lookups_total",
			Help: "Total number of result cache lookups by result",
		},
		[]string{"result"},
	)

	m.CatalogUnits = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "address_catalog_units",
			Help: "Number of administrative units in the live catalog by level",
		},
		[]string{"level"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "address_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "address_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	return m
}

// RecordResolution records one resolution with its status
func (m *Metrics) RecordResolution(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(status).Inc()
	m.ResolveDuration.Observe(duration.Seconds())
}

// RecordBatchJob records a finished batch job ("done", "failed", "cancelled")
func (m *Metrics) RecordBatchJob(outcome string) {
	if m == nil {
		return
	}
	m.BatchJobsTotal.WithLabelValues(outcome).Inc()
}

// AddBatchLines counts processed batch lines
func (m *Metrics) AddBatchLines(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BatchLinesTotal.Add(float64(n))
}

// RecordCacheLookup records a cache "hit", "miss" or "error"
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetCatalogUnits updates the catalog size gauges
func (m *Metrics) SetCatalogUnits(counts map[string]int) {
	if m == nil {
		return
	}
	m.CatalogUnits.Reset()
	for level, n := range counts {
		m.CatalogUnits.WithLabelValues(level).Set(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
