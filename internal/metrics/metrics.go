package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlsprobe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hlsprobe_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Manifest Metrics
	ManifestParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlsprobe_manifest_parses_total",
			Help: "Total number of manifests parsed",
		},
		[]string{"type"},
	)

	// Probe Metrics
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlsprobe_probes_total",
			Help: "Total number of inspection service calls",
		},
		[]string{"mode", "status"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hlsprobe_probe_duration_seconds",
			Help:    "Inspection call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~200s
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hlsprobe_batch_size_segments",
			Help:    "Number of segments per batch probe",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hlsprobe_cache_hits_total",
			Help: "Total number of segment analysis cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hlsprobe_cache_misses_total",
			Help: "Total number of segment analysis cache misses",
		},
	)

	// Corruption Check Metrics
	CorruptionIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlsprobe_corruption_issues_total",
			Help: "Total number of corruption issues detected",
		},
		[]string{"severity"},
	)

	CorruptionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hlsprobe_corruption_checks_total",
			Help: "Total number of whole-file corruption checks",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records one handled HTTP request
func RecordHTTPRequest(method, endpoint, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordManifestParse records one parsed manifest by playlist type
func RecordManifestParse(playlistType string) {
	ManifestParsesTotal.WithLabelValues(playlistType).Inc()
}

// RecordProbe records one inspection call outcome
func RecordProbe(mode, status string, durationSeconds float64) {
	ProbesTotal.WithLabelValues(mode, status).Inc()
	ProbeDuration.Observe(durationSeconds)
}

// RecordCorruptionCheck records one corruption check and its issue severities
func RecordCorruptionCheck(status string, severities []string) {
	CorruptionChecksTotal.WithLabelValues(status).Inc()
	for _, severity := range severities {
		CorruptionIssuesTotal.WithLabelValues(severity).Inc()
	}
}
