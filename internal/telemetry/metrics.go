// Package telemetry provides observability primitives for the CEP tracker.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ceptracker"

// Lookup outcomes used as the "outcome" label.
const (
	OutcomeHit      = "hit"
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveRequests     prometheus.Gauge
	LookupsTotal       *prometheus.CounterVec
	LookupDuration     *prometheus.HistogramVec
	UpstreamDuration   prometheus.Histogram
	UpstreamErrors     *prometheus.CounterVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheErrors        *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
	AuditEntries       *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       namespace,
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total CEP resolutions by outcome.",
		}, []string{"outcome"}),

		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       namespace,
			Name:                            "lookup_duration_seconds",
			Help:                            "CEP resolution duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"outcome"}),

		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:                       namespace,
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream lookup call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total upstream lookup errors.",
		}, []string{"kind"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total resolution cache hits.",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total resolution cache misses.",
		}),

		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total cache backend errors absorbed by the pipeline.",
		}, []string{"op"}),

		AuditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Total audit entries that could not be persisted.",
		}),

		AuditEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_entries",
			Help:      "Persisted audit entries by result, refreshed periodically.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.LookupsTotal,
		m.LookupDuration,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.AuditWriteFailures,
		m.AuditEntries,
	)

	return m
}
