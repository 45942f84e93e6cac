// Package metrics provides Prometheus metrics for the image proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// Candidate attempt outcomes.
const (
	AttemptSuccess = "success"
	AttemptFailure = "failure"
)

var (
	// CacheLookupsTotal counts cache lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageproxy",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictionsTotal counts entries removed from the cache by size or age.
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageproxy",
			Name:      "cache_evictions_total",
			Help:      "Total number of cache entries evicted",
		},
		[]string{"reason"},
	)

	// SourceAttemptsTotal counts candidate source fetches by candidate index and outcome.
	SourceAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageproxy",
			Name:      "source_attempts_total",
			Help:      "Total number of candidate source fetch attempts",
		},
		[]string{"candidate", "outcome"},
	)

	// TranscodeDuration measures decode, resize, and encode time.
	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imageproxy",
			Name:      "transcode_duration_seconds",
			Help:      "Duration of image transcodes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// ResponsesTotal counts image responses by HTTP status code.
	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageproxy",
			Name:      "responses_total",
			Help:      "Total number of image responses by status",
		},
		[]string{"status"},
	)
)

// RecordCacheLookup records a cache lookup result.
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordEviction records a cache eviction.
func RecordEviction(reason string) {
	CacheEvictionsTotal.WithLabelValues(reason).Inc()
}

// RecordSourceAttempt records one candidate fetch attempt.
func RecordSourceAttempt(candidate, outcome string) {
	SourceAttemptsTotal.WithLabelValues(candidate, outcome).Inc()
}

// RecordTranscode records the duration of a transcode in seconds.
func RecordTranscode(seconds float64) {
	TranscodeDuration.Observe(seconds)
}

// RecordResponse records an image response status.
func RecordResponse(status string) {
	ResponsesTotal.WithLabelValues(status).Inc()
}
