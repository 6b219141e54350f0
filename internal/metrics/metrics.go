package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "debridops",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveOperations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "debridops",
		Name:      "active_operations",
		Help:      "Number of currently running bulk operations.",
	})

	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "operations_total",
		Help:      "Total bulk operations finished, by type and terminal status.",
	}, []string{"type", "status"})

	ItemsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "items_processed_total",
		Help:      "Total bulk operation items processed, by type and outcome.",
	}, []string{"type", "outcome"})

	ItemDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "debridops",
		Name:      "item_duration_seconds",
		Help:      "Duration of a single bulk operation item in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type"})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "cache_hits_total",
		Help:      "Total file cache hits by layer.",
	}, []string{"layer"})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "cache_misses_total",
		Help:      "Total file cache misses.",
	})

	DebridRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debridops",
		Name:      "debrid_requests_total",
		Help:      "Total debrid provider API requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	LibraryFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "debridops",
		Name:      "library_files",
		Help:      "Number of files known to the library after the last sync.",
	})

	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "debridops",
		Name:      "ws_clients",
		Help:      "Number of connected WebSocket clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveOperations,
		OperationsTotal,
		ItemsProcessedTotal,
		ItemDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		DebridRequestsTotal,
		LibraryFiles,
		WSClients,
	)
}
