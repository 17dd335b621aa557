package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// catalog client and the raster pipeline.
type Metrics struct {
	SearchRequests  prometheus.Counter
	ItemsNormalized prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Tile loop metrics.
	TilesProcessed prometheus.Counter
	TilesSkipped   prometheus.Counter
	TileDuration   prometheus.Histogram

	// Download cache metrics.
	FetchRequests *prometheus.CounterVec // labels: result={hit,miss,error}
	FetchBytes    prometheus.Counter

	// OpenStreetMap adapter metrics.
	FootprintRequests prometheus.Counter
	GeocodeRequests   prometheus.Counter

	// Output metrics.
	FeaturesComputed prometheus.Counter
	FeaturesExported prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SearchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "search_requests_total",
			Help:      "Total catalog search round trips, pagination included.",
		}),
		ItemsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "items_normalized_total",
			Help:      "Total catalog items flattened into tile records.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swisstopo",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		TilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "tiles_processed_total",
			Help:      "Total tile pairs fused into height statistics.",
		}),
		TilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "tiles_skipped_total",
			Help:      "Total tiles skipped after fetch failures.",
		}),
		TileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swisstopo",
			Name:      "tile_processing_duration_seconds",
			Help:      "Duration of a complete fetch-difference-aggregate cycle per tile.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "fetch_requests_total",
			Help:      "Asset downloads by cache result.",
		}, []string{"result"}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "fetch_bytes_total",
			Help:      "Total bytes downloaded from the asset store.",
		}),
		FootprintRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "footprint_requests_total",
			Help:      "Total Overpass queries for building footprints.",
		}),
		GeocodeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "geocode_requests_total",
			Help:      "Total Nominatim place lookups.",
		}),
		FeaturesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "features_computed_total",
			Help:      "Total building features with a fused height.",
		}),
		FeaturesExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swisstopo",
			Name:      "features_exported_total",
			Help:      "Total building features published to the export sink.",
		}),
	}

	prometheus.MustRegister(
		m.SearchRequests,
		m.ItemsNormalized,
		m.PipelineRunning,
		m.TilesProcessed,
		m.TilesSkipped,
		m.TileDuration,
		m.FetchRequests,
		m.FetchBytes,
		m.FootprintRequests,
		m.GeocodeRequests,
		m.FeaturesComputed,
		m.FeaturesExported,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SearchRequests:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "search_requests_total"}),
		ItemsNormalized:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "items_normalized_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "swisstopo", Name: "pipeline_running"}),
		TilesProcessed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "tiles_processed_total"}),
		TilesSkipped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "tiles_skipped_total"}),
		TileDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "swisstopo", Name: "tile_processing_duration_seconds"}),
		FetchRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "swisstopo", Name: "fetch_requests_total"}, []string{"result"}),
		FetchBytes:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "fetch_bytes_total"}),
		FootprintRequests: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "footprint_requests_total"}),
		GeocodeRequests:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "geocode_requests_total"}),
		FeaturesComputed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "features_computed_total"}),
		FeaturesExported:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "swisstopo", Name: "features_exported_total"}),
	}
}
