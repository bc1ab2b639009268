// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_dataset_fetch_total",
		Help: "Total dataset fetches issued to the data origin",
	}, []string{"dataset"})
	DatasetFetchFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_dataset_fetch_fail_total",
		Help: "Total dataset fetches that failed (transport or parse)",
	}, []string{"dataset"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_dataset_cache_hits_total",
		Help: "Total dataset reads served from the in-memory cache",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_dataset_cache_misses_total",
		Help: "Total dataset reads that required a fetch",
	})
	AssistantRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_assistant_requests_total",
		Help: "Total requests forwarded to the AI recommendation service",
	})
	AssistantFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_assistant_fail_total",
		Help: "Total failed AI recommendation requests",
	})
	SearchRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_search_requests_total",
		Help: "Total location search requests",
	})
)

func init() {
	prometheus.MustRegister(
		DatasetFetchTotal,
		DatasetFetchFailTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		AssistantRequestsTotal,
		AssistantFailTotal,
		SearchRequestsTotal,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
