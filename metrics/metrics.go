// Package metrics provides Prometheus instrumentation for draft generation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

const namespace = "lexdraft"

var (
	// RequestLatency tracks end-to-end generation latency in seconds.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "End-to-end draft generation latency in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode", "outcome"},
	)

	// RequestsTotal tracks finished requests by mode, outcome and the
	// endpoint that served them.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of draft requests by outcome.",
		},
		[]string{"mode", "outcome", "endpoint"}, // outcome: "success", "cache_hit", "error"
	)

	// ActiveRequests tracks the number of in-flight requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of draft requests currently in flight.",
		},
	)

	// RetriesTotal counts backoff retries per endpoint role.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried model calls.",
		},
		[]string{"endpoint", "kind"},
	)

	// FallbacksTotal counts switches to the fallback model by the primary's
	// error kind.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of switches to the fallback model.",
		},
		[]string{"kind"},
	)

	// ErrorsTotal counts failed requests by error kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed draft requests by error kind.",
		},
		[]string{"kind"},
	)

	// CacheHitsTotal counts drafts served from the cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of drafts served from the cache.",
		},
	)
)

// Observe is a drafting.Observer that records request state transitions.
func Observe(ev drafting.Event) {
	switch ev.State {
	case drafting.StateValidating:
		ActiveRequests.Inc()
	case drafting.StateRetrying:
		RetriesTotal.WithLabelValues(endpointLabel(ev.Endpoint), kindLabel(ev.Err)).Inc()
	case drafting.StateFallbackInvoking:
		FallbacksTotal.WithLabelValues(kindLabel(ev.Err)).Inc()
	case drafting.StateSucceeded:
		ActiveRequests.Dec()
		outcome := "success"
		if ev.Cached {
			outcome = "cache_hit"
			CacheHitsTotal.Inc()
		}
		RequestsTotal.WithLabelValues(string(ev.Mode), outcome, endpointLabel(ev.Endpoint)).Inc()
		RequestLatency.WithLabelValues(string(ev.Mode), outcome).Observe(ev.Elapsed.Seconds())
	case drafting.StateFailed:
		ActiveRequests.Dec()
		ErrorsTotal.WithLabelValues(kindLabel(ev.Err)).Inc()
		RequestsTotal.WithLabelValues(string(ev.Mode), "error", endpointLabel(ev.Endpoint)).Inc()
		RequestLatency.WithLabelValues(string(ev.Mode), "error").Observe(ev.Elapsed.Seconds())
	}
}

func endpointLabel(ep unifiedllm.Endpoint) string {
	if ep.Role == "" {
		return "none"
	}
	return string(ep.Role)
}

func kindLabel(err *unifiedllm.ClassifiedError) string {
	if err == nil {
		return string(unifiedllm.KindUnknown)
	}
	return string(err.Kind)
}
