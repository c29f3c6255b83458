// Package metrics defines the Prometheus instrumentation for the PALD core:
// bias queue depth, job processing duration, prerequisite check latency,
// and cache hit rate, all under the "paldcore_" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paldcore"

// Metrics bundles every collector the PALD core exposes.
type Metrics struct {
	BiasJobsQueuedTotal      *prometheus.CounterVec
	BiasQueueDepth           prometheus.Gauge
	BiasJobProcessingSeconds *prometheus.HistogramVec
	BiasJobFailuresTotal     *prometheus.CounterVec

	PrerequisiteCheckSeconds *prometheus.HistogramVec
	PrerequisiteCheckTotal   *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
}

// NewMetrics builds and registers every collector against the global
// default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry builds and registers every collector against reg,
// letting tests use an isolated prometheus.Registry instead of the
// process-wide default.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BiasJobsQueuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bias_jobs_queued_total",
			Help:      "Total bias analysis jobs queued, by priority.",
		}, []string{"priority"}),
		BiasQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bias_queue_depth",
			Help:      "Current number of pending bias analysis jobs.",
		}),
		BiasJobProcessingSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bias_job_processing_seconds",
			Help:      "Bias job processing duration in seconds, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		BiasJobFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bias_job_failures_total",
			Help:      "Total bias jobs that completed with a failure, by analysis type.",
		}, []string{"analysis_type"}),

		PrerequisiteCheckSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prerequisite_check_seconds",
			Help:      "Prerequisite checker latency in seconds, by checker name and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"checker", "status"}),
		PrerequisiteCheckTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prerequisite_checks_total",
			Help:      "Total prerequisite checks run, by checker name and status.",
		}, []string{"checker", "status"}),

		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total cache hits, by cache name.",
		}, []string{"cache"}),
		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total cache misses, by cache name.",
		}, []string{"cache"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests, by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		RequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.BiasJobsQueuedTotal,
		m.BiasQueueDepth,
		m.BiasJobProcessingSeconds,
		m.BiasJobFailuresTotal,
		m.PrerequisiteCheckSeconds,
		m.PrerequisiteCheckTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RequestsTotal,
		m.RequestDurationSeconds,
	)

	return m
}

// CacheHitRate returns the observed hit rate (0..1) given raw hit/miss
// sample counts; returns 0 when no samples were taken.
func CacheHitRate(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
