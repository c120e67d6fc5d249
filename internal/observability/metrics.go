package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	upstreamFetches    *prometheus.CounterVec
	cacheUpserts       *prometheus.CounterVec
	cacheUpsertErrors  *prometheus.CounterVec
	tokenRefreshTotals *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the sync and
// analytics paths.
func RegisterMetrics() {
	registerOnce.Do(func() {
		upstreamFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmirror_upstream_fetches_total",
			Help: "Total number of upstream API fetches by entity and outcome.",
		}, []string{"entity", "outcome"})

		cacheUpserts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmirror_cache_upserts_total",
			Help: "Total number of successful cache upserts by entity.",
		}, []string{"entity"})

		cacheUpsertErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmirror_cache_upsert_failures_total",
			Help: "Total number of failed cache upserts by entity.",
		}, []string{"entity"})

		tokenRefreshTotals = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmirror_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts by outcome.",
		}, []string{"outcome"})

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classmirror_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classmirror_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		prometheus.MustRegister(upstreamFetches, cacheUpserts, cacheUpsertErrors, tokenRefreshTotals, httpRequests, httpLatency)
	})
}

// UpstreamFetches exposes the fetch counter.
func UpstreamFetches() *prometheus.CounterVec {
	RegisterMetrics()
	return upstreamFetches
}

// CacheUpserts exposes the successful upsert counter.
func CacheUpserts() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheUpserts
}

// CacheUpsertFailures exposes the failed upsert counter.
func CacheUpsertFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheUpsertErrors
}

// TokenRefreshes exposes the token refresh counter.
func TokenRefreshes() *prometheus.CounterVec {
	RegisterMetrics()
	return tokenRefreshTotals
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequests
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatency
}
