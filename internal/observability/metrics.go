// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthAttempts counts sign-in and registration attempts by method and outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_attempts_total",
		Help: "Total number of authentication attempts",
	}, []string{"method", "outcome"})

	// TokenVerifyFailures counts rejected session tokens by reason.
	TokenVerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_token_verify_failures_total",
		Help: "Total number of session tokens that failed verification",
	}, []string{"reason"})

	// PasswordHashDuration records how long bcrypt takes at the configured cost.
	PasswordHashDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkwell_password_hash_duration_seconds",
		Help:    "Time spent hashing passwords",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// PostMutations counts successful post writes by operation.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_mutations_total",
		Help: "Total number of post create, update and delete operations",
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObservePasswordHash records a hash duration measured from start.
func ObservePasswordHash(start time.Time) {
	PasswordHashDuration.Observe(time.Since(start).Seconds())
}
