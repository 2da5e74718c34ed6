// Package metrics exposes Prometheus instruments on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application instruments. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	financing      *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	listings       prometheus.Counter
	reconcileRuns  *prometheus.CounterVec
	reconcileFixed prometheus.Counter
	needsRepair    prometheus.Gauge
}

// New registers every instrument under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		financing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "financing_submissions_total",
			Help:      "Financing wizard submissions by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Object uploads by bucket and result.",
		}, []string{"bucket", "result"}),
		listings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Vehicle listings created.",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Listing reconciler passes by result.",
		}, []string{"result"}),
		reconcileFixed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repaired_total",
			Help:      "Listings whose child writes were completed by the reconciler.",
		}),
		needsRepair: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_needs_repair",
			Help:      "Listings flagged for manual repair at the last reconciler pass.",
		}),
	}

	reg.MustRegister(
		m.httpDuration, m.financing, m.uploads, m.listings,
		m.reconcileRuns, m.reconcileFixed, m.needsRepair,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// FinancingSubmission counts a wizard submission ("submitted" or "failed").
func (m *Metrics) FinancingSubmission(outcome string) {
	if m == nil {
		return
	}
	m.financing.WithLabelValues(outcome).Inc()
}

// Upload counts an object upload.
func (m *Metrics) Upload(bucket string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploads.WithLabelValues(bucket, result).Inc()
}

// ListingCreated counts a new listing.
func (m *Metrics) ListingCreated() {
	if m == nil {
		return
	}
	m.listings.Inc()
}

// ReconcileRun records a reconciler pass.
func (m *Metrics) ReconcileRun(repaired, needsRepair int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reconcileRuns.WithLabelValues(result).Inc()
	m.reconcileFixed.Add(float64(repaired))
	m.needsRepair.Set(float64(needsRepair))
}
