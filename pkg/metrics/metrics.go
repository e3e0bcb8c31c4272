package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tileserve_requests_total",
		Help: "Total number of handled requests by resolved kind and status code",
	}, []string{"kind", "status"})

	Transcodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tileserve_transcodes_total",
		Help: "Total number of responses whose encoding differs from the stored one",
	}, []string{"from", "to"})

	TranscodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tileserve_transcode_duration_seconds",
		Help:    "Time spent decompressing and recompressing content",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tileserve_cache_entries",
		Help: "Number of paths registered in the static content cache",
	})

	TileSourceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tileserve_tile_source_latency_seconds",
		Help:    "Latency of tile source lookups in seconds",
		Buckets: prometheus.DefBuckets,
	})

	TileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tileserve_tile_cache_hits_total",
		Help: "Total number of tile cache hits",
	})

	TileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tileserve_tile_cache_misses_total",
		Help: "Total number of tile cache misses",
	})

	TileCacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tileserve_tile_cache_errors_total",
		Help: "Total number of tile cache errors",
	}, []string{"operation"})

	UpstreamRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tileserve_upstream_requests_total",
		Help: "Total number of upstream tile server requests",
	})
)
