package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Generations
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_generations_total",
			Help: "Completed generations by source and outcome",
		},
		[]string{"source", "outcome"}, // source: remote|local, outcome: ok|degraded|invalid|error
	)
	Fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_fallbacks_total",
			Help: "Generations served by the local generator after a remote failure",
		},
		[]string{"reason"},
	)
	GenerationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartgenesis_generation_duration_seconds",
			Help:    "End-to-end generation latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms..51s
		},
		[]string{"source"},
	)

	// Backend
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_backend_requests_total",
			Help: "Backend calls by provider",
		},
		[]string{"provider"},
	)
	BackendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_backend_errors_total",
			Help: "Failed backend calls by provider and error kind",
		},
		[]string{"provider", "kind"},
	)
	BackendDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartgenesis_backend_duration_seconds",
			Help:    "Backend call latency",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms..32s
		},
		[]string{"provider"},
	)
	BackendInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smartgenesis_backend_in_flight",
			Help: "Backend calls currently holding a concurrency slot",
		},
	)

	// Sanitizer
	SanitizerRemovals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_sanitizer_removals_total",
			Help: "Matches removed from generated code by rule",
		},
		[]string{"rule"},
	)

	// Circuit breaker
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartgenesis_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	// Transport
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_rate_limited_total",
			Help: "Requests rejected by the API rate limiter",
		},
		[]string{"store"}, // store: memory|redis
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgenesis_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Generations
		Generations,
		Fallbacks,
		GenerationDurationSeconds,
		// Backend
		BackendRequests,
		BackendErrors,
		BackendDurationSeconds,
		BackendInFlight,
		// Sanitizer
		SanitizerRemovals,
		// Breaker
		BreakerState,
		// Transport
		RateLimited,
		// Errors
		Errors,
	)
}

// Generations
func IncGeneration(source, outcome string) {
	Generations.WithLabelValues(source, outcome).Inc()
}

func IncFallback(reason string) {
	Fallbacks.WithLabelValues(reason).Inc()
}

func ObserveGenerationDuration(source string, d time.Duration) {
	GenerationDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// Backend
func IncBackendRequest(provider string) {
	BackendRequests.WithLabelValues(provider).Inc()
}

func IncBackendError(provider, kind string) {
	BackendErrors.WithLabelValues(provider, kind).Inc()
}

func ObserveBackendDuration(provider string, d time.Duration) {
	BackendDurationSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

// Sanitizer
func AddSanitizerRemovals(counts map[string]int) {
	for rule, n := range counts {
		SanitizerRemovals.WithLabelValues(rule).Add(float64(n))
	}
}

// Breaker
func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

// Transport
func IncRateLimited(store string) {
	RateLimited.WithLabelValues(store).Inc()
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
