// Package middleware provides cross-cutting concerns for the query service.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-cuberank/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks query latency and outcome, record cache effectiveness, HTTP
// traffic and the size of the loaded dataset.
type PrometheusMetrics struct {
	queryLatency   *prometheus.HistogramVec
	queryCounter   *prometheus.CounterVec
	cacheCounter   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	operationCount *prometheus.CounterVec
	datasetGauges  *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses the global default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		queryLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cuberank_query_duration_seconds",
				Help:    "Execution time of query service operations.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation", "status"},
		),
		queryCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cuberank_queries_total",
				Help: "Total number of query service operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		cacheCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cuberank_record_cache_lookups_total",
				Help: "Record cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cuberank_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
		operationCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cuberank_operations_total",
				Help: "Counters without a dedicated metric.",
			},
			[]string{"metric"},
		),
		datasetGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cuberank_dataset_size",
				Help: "Number of loaded entities by kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case "http_request":
		pm.httpLatency.WithLabelValues(
			orUnknown(labels["route"]),
			orUnknown(labels["method"]),
			orUnknown(labels["code"]),
		).Observe(duration.Seconds())
	default:
		op := labels["operation"]
		if op == "" {
			op = operation
		}
		pm.queryLatency.WithLabelValues(op, orUnknown(labels["status"])).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "queries_total":
		pm.queryCounter.WithLabelValues(
			orUnknown(labels["operation"]),
			orUnknown(labels["status"]),
		).Add(value)
	case "record_cache_hits_total":
		pm.cacheCounter.WithLabelValues(orUnknown(labels["cache"]), "hit").Add(value)
	case "record_cache_misses_total":
		pm.cacheCounter.WithLabelValues(orUnknown(labels["cache"]), "miss").Add(value)
	default:
		pm.operationCount.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface. The metric name is
// the entity kind, e.g. "competitors" or "attempts".
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.datasetGauges.WithLabelValues(metric).Set(value)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
