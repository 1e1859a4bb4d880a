package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchemaResolutions counts schema resolutions by terminal outcome
	// (cache_hit|repo|values|empty|error).
	SchemaResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rudder_schema_resolutions_total",
			Help: "Total number of schema resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// HelmInvocations counts helm CLI invocations by subcommand and result (ok|error).
	HelmInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rudder_helm_invocations_total",
			Help: "Total number of helm CLI invocations",
		},
		[]string{"subcommand", "result"},
	)

	// CachedSchemas tracks the number of rows in the schema cache.
	CachedSchemas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rudder_cached_schemas",
			Help: "Number of cached chart schemas",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rudder_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
