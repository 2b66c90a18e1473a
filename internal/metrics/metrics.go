package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrentsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "provider_requests_total",
		Help:      "Total requests to search providers by provider id and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrentsearch",
		Name:      "provider_request_duration_seconds",
		Help:      "Search provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torrentsearch",
		Name:      "provider_available",
		Help:      "Whether a provider is available (1) or blocked by circuit breaker (0).",
	}, []string{"provider"})

	SearchRoundsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "search_rounds_total",
		Help:      "Completed search rounds by requested category.",
	}, []string{"category"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "cache_hits_total",
		Help:      "Total number of search round cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "cache_misses_total",
		Help:      "Total number of search round cache misses.",
	})

	JackettSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrentsearch",
		Name:      "jackett_sync_total",
		Help:      "Jackett indexer sync runs by outcome.",
	}, []string{"status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		SearchRoundsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		JackettSyncTotal,
	)
}
