package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solpath_pool_count",
		Help: "Total number of pools in the registry",
	})

	ReadyPoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solpath_ready_pool_count",
		Help: "Number of pools ready for quoting",
	})

	PoolUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_pool_updates_total",
		Help: "Total number of pool state updates applied",
	})

	PoolsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_pools_evicted_total",
		Help: "Total number of pools evicted after repeated refresh misses",
	})

	RegistrySnapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_registry_snapshot_rebuilds_total",
		Help: "Total number of registry snapshot rebuilds",
	})

	RegistryIncrementalUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_registry_incremental_updates_total",
		Help: "Total number of incremental registry snapshot updates",
	})

	// Refresh metrics
	RefreshRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solpath_refresh_requests_total",
			Help: "Total number of pool refresh attempts",
		},
		[]string{"result"},
	)

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solpath_refresh_duration_seconds",
		Help:    "Pool refresh round-trip duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
	})

	RefreshDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_refresh_deduped_total",
		Help: "Refresh calls coalesced into an in-flight request",
	})

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solpath_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solpath_quote_duration_seconds",
		Help:    "Quote request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
	})

	QuoteTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_quote_timeouts_total",
		Help: "Quote requests that hit the deadline before all candidates finished",
	})

	StaleQuoteRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solpath_stale_quote_rejections_total",
		Help: "Quotes rejected because pool state could not be refreshed in time",
	})

	RouteCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solpath_route_candidates",
		Help:    "Number of candidate routes evaluated per quote request",
		Buckets: []float64{1, 2, 3, 5, 7, 10},
	})

	PoolsEvaluated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solpath_pools_evaluated",
		Help:    "Number of pools evaluated per quote request",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solpath_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solpath_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solpath_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Persistence metrics
	PersistDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solpath_persist_duration_seconds",
		Help: "Duration of the last pool persistence flush",
	})

	PersistedPools = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solpath_persisted_pools",
		Help: "Number of pools written in the last persistence flush",
	})

	// Balance lookups behind the Executable flag
	BalanceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solpath_balance_lookups_total",
			Help: "Total number of wallet balance lookups",
		},
		[]string{"result"},
	)
)
