package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BackendCollector bundles Prometheus metrics for the propagation backend:
// HTTP request counts and latencies per route plus TLE cache behaviour.
type BackendCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	TLECacheHits       prometheus.Counter
	TLECacheMisses     prometheus.Counter
	TLEStaleServes     prometheus.Counter
	TLERefreshFailures prometheus.Counter
}

// NewBackendCollector registers backend Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewBackendCollector(reg prometheus.Registerer) (*BackendCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"})
	requests, err := registerCounterVec(reg, requests, "backend_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})
	durations, err = registerHistogramVec(reg, durations, "backend_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backend_tle_cache_hits_total",
		Help: "TLE lookups served from a fresh cache entry.",
	}), "backend_tle_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backend_tle_cache_misses_total",
		Help: "TLE lookups that required an upstream fetch.",
	}), "backend_tle_cache_misses_total")
	if err != nil {
		return nil, err
	}
	staleServes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backend_tle_stale_serves_total",
		Help: "TLE lookups answered from an expired cache entry after a failed refresh.",
	}), "backend_tle_stale_serves_total")
	if err != nil {
		return nil, err
	}
	refreshFailures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backend_tle_refresh_failures_total",
		Help: "Upstream TLE fetches that failed.",
	}), "backend_tle_refresh_failures_total")
	if err != nil {
		return nil, err
	}

	return &BackendCollector{
		gatherer:           gatherer,
		HTTPRequests:       requests,
		HTTPDurations:      durations,
		TLECacheHits:       hits,
		TLECacheMisses:     misses,
		TLEStaleServes:     staleServes,
		TLERefreshFailures: refreshFailures,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *BackendCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next, recording a count and latency observation per
// request under the given route label.
func (c *BackendCollector) InstrumentHandler(route string, next http.HandlerFunc) http.HandlerFunc {
	if c == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	}
}

// RecordTLELookup counts one cache lookup.
func (c *BackendCollector) RecordTLELookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		if c.TLECacheHits != nil {
			c.TLECacheHits.Inc()
		}
		return
	}
	if c.TLECacheMisses != nil {
		c.TLECacheMisses.Inc()
	}
}

// RecordTLEStaleServe counts one lookup answered from expired cache data.
func (c *BackendCollector) RecordTLEStaleServe() {
	if c == nil || c.TLEStaleServes == nil {
		return
	}
	c.TLEStaleServes.Inc()
}

// RecordTLERefreshFailure counts one failed upstream fetch.
func (c *BackendCollector) RecordTLERefreshFailure() {
	if c == nil || c.TLERefreshFailures == nil {
		return
	}
	c.TLERefreshFailures.Inc()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
