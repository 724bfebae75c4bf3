package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stacmosaic",
			Name:      "catalog_search_duration_seconds",
			Help:      "Catalog search duration including pagination",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	searchPages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stacmosaic",
			Name:      "catalog_search_pages",
			Help:      "Pages fetched per catalog search",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	mosaicItemsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stacmosaic",
			Name:      "mosaic_items_scanned_total",
			Help:      "Items merged into mosaic composites",
		},
	)

	mosaicItemFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stacmosaic",
			Name:      "mosaic_item_read_failures_total",
			Help:      "Per-item read failures absorbed during compositing",
		},
	)

	mosaicEarlyExits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stacmosaic",
			Name:      "mosaic_early_exits_total",
			Help:      "Mosaic requests that completed before exhausting the item list",
		},
	)
)

func init() {
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(searchPages)
	prometheus.MustRegister(mosaicItemsScanned)
	prometheus.MustRegister(mosaicItemFailures)
	prometheus.MustRegister(mosaicEarlyExits)
}

// ObserveSearch records one catalog search round-trip.
func ObserveSearch(d time.Duration, pages int) {
	searchDuration.Observe(d.Seconds())
	searchPages.Observe(float64(pages))
}

// ItemScanned counts one item merged into a composite.
func ItemScanned() { mosaicItemsScanned.Inc() }

// ItemReadFailed counts one absorbed per-item read failure.
func ItemReadFailed() { mosaicItemFailures.Inc() }

// EarlyExit counts one mosaic that stopped before its item list ended.
func EarlyExit() { mosaicEarlyExits.Inc() }
