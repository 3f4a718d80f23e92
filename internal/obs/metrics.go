// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"net/http"

	"github.com/jamesross/dgrid-batch/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ItemsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "items_processed_total",
		Help: "Total number of envelopes dispatched to completion",
	})
	ItemsErrored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "items_errored_total",
		Help: "Total number of envelopes that produced an error annotation",
	})
	ItemsMalformed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "items_malformed_total",
		Help: "Total number of input fragments that failed to parse as JSON objects",
	})
	ConnectionReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "connection_reconnects_total",
		Help: "Total number of forced reconnects due to max_connect_time",
	})
	ConnectionOpens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "connection_opens_total",
		Help: "Total number of login attempts against the grid backend",
	})
	PrimitiveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "primitive_duration_seconds",
		Help:    "Histogram of storage primitive latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	CircuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open",
	})
	CircuitBreakerTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circuit_breaker_trips_total",
		Help: "Count of times the circuit breaker transitioned to Open",
	})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "path_cache_hits_total",
		Help: "Total number of Path Resolver cache hits",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "path_cache_misses_total",
		Help: "Total number of Path Resolver cache misses",
	})
	AuditFlushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_flush_failures_total",
		Help: "Total number of failed best-effort audit batch flushes",
	})
)

func init() {
	prometheus.MustRegister(
		ItemsProcessed, ItemsErrored, ItemsMalformed,
		ConnectionReconnects, ConnectionOpens,
		PrimitiveDuration, CircuitBreakerState, CircuitBreakerTrips,
		CacheHits, CacheMisses, AuditFlushFailures,
	)
}

// StartMetricsServer exposes /metrics and returns a server for controlled
// shutdown. Retained for compatibility; StartHTTPServer also registers the
// health endpoints and is preferred for new callers.
func StartMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
