// Package metrics defines the Prometheus collectors for the indexing
// pipeline and the thumbnail cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Indexing metrics.
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_indexer_runs_total",
			Help: "Total number of project index runs started",
		},
	)

	IndexerBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_indexer_batches_total",
			Help: "Total number of walk batches merged into the catalog",
		},
	)

	IndexerErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_indexer_errors_total",
			Help: "Total number of index runs that ended in an enumeration error",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_indexer_running",
			Help: "Whether an index run is in progress (1 = indexing, 0 = idle)",
		},
	)

	CatalogIndexedCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_catalog_indexed_count",
			Help: "Number of photo records in the merged catalog",
		},
	)

	CatalogPublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_catalog_publishes_total",
			Help: "Total number of externally visible catalog publications",
		},
	)

	FirstPaintSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_first_paint_seconds",
			Help: "Latency from project open to the first visible record",
		},
	)

	FullIndexSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_full_index_seconds",
			Help: "Latency from project open to index completion",
		},
	)
)

// Thumbnail cache metrics.
var (
	ThumbnailRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_thumbnail_requests_total",
			Help: "Total number of thumbnail requests",
		},
	)

	ThumbnailHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snaption_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_thumbnail_cache_entries",
			Help: "Current number of cached thumbnails",
		},
	)

	ThumbnailCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snaption_thumbnail_cache_bytes",
			Help: "Current byte cost of cached thumbnails",
		},
	)
)
