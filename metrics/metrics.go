// Package metrics exposes the Prometheus collectors of the shipping service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shipping",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shipping",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "path"},
	)

	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shipping",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Rate provider calls by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shipping",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of rate provider calls including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"provider"},
	)

	circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shipping",
			Subsystem: "provider",
			Name:      "circuit_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 open, 2 half-open).",
		},
		[]string{"provider"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shipping",
			Subsystem: "quote_cache",
			Name:      "lookups_total",
			Help:      "Quote cache lookups by result.",
		},
		[]string{"result"},
	)

	aggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shipping",
			Subsystem: "quotes",
			Name:      "aggregations_total",
			Help:      "Completed quote aggregations by calculation method.",
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		providerCalls,
		providerDuration,
		circuitState,
		cacheLookups,
		aggregations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveProviderCall records a finished provider call.
func ObserveProviderCall(provider, outcome string, d time.Duration) {
	providerCalls.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// SetCircuitState publishes a breaker transition.
func SetCircuitState(provider string, state int) {
	circuitState.WithLabelValues(provider).Set(float64(state))
}

// IncCacheLookup counts a cache hit, miss or error.
func IncCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// IncAggregation counts a computed quote.
func IncAggregation(method string) {
	aggregations.WithLabelValues(method).Inc()
}
