// Package pipeline orchestrates the raster products derived from the
// swisstopo catalog: per-building height statistics, terrain mosaics, and
// tree canopy masks.
//
// An Engine is scoped to one region, mirroring the catalog client it wraps.
// Tiles are processed sequentially in table order; a failing tile aborts the
// run unless WithSkipFailedTiles is set, in which case it is logged, counted,
// and left out of the result.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
	"github.com/martibosch/swisstopopy/internal/stac"
)

// ErrUnsupportedResolution reports a terrain grid size the catalog does not
// publish.
var ErrUnsupportedResolution = errors.New("pipeline: unsupported terrain resolution")

// ErrCanopyUnavailable reports that the point cloud tooling needed for canopy
// masks is not installed.
var ErrCanopyUnavailable = errors.New("pipeline: point cloud rasterizer unavailable")

// terrainResolutions are the grid sizes swissalti3d is published at.
var terrainResolutions = []float64{0.5, 2}

// Catalog is the region-scoped catalog surface the engine consumes.
// *stac.Client implements it.
type Catalog interface {
	GetCollectionTable(ctx context.Context, collectionID string, opts ...stac.SearchOption) (domain.TileTable, error)
}

// Engine derives raster products for one region.
type Engine struct {
	region  geo.Region
	catalog Catalog
	fetcher domain.Fetcher
	reader  domain.RasterReader
	warper  domain.Warper
	logger  *slog.Logger
	metrics *observability.Metrics

	footprints   domain.FootprintSource
	sink         domain.FeatureSink
	pointCloud   domain.PointCloudRasterizer
	rasterWriter domain.RasterWriter

	skipFailedTiles bool
	progress        func(done, total int)
	ready           atomic.Bool
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithFootprintSource supplies the building outlines for height runs.
func WithFootprintSource(src domain.FootprintSource) Option {
	return func(e *Engine) { e.footprints = src }
}

// WithFeatureSink publishes computed building features after a height run.
func WithFeatureSink(sink domain.FeatureSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithPointCloudRasterizer supplies the gridding backend for canopy masks.
func WithPointCloudRasterizer(r domain.PointCloudRasterizer) Option {
	return func(e *Engine) { e.pointCloud = r }
}

// WithRasterWriter supplies the mask persistence backend for canopy masks.
func WithRasterWriter(w domain.RasterWriter) Option {
	return func(e *Engine) { e.rasterWriter = w }
}

// WithSkipFailedTiles makes tile failures non-fatal.
func WithSkipFailedTiles(skip bool) Option {
	return func(e *Engine) { e.skipFailedTiles = skip }
}

// WithProgress reports loop progress as (done, total) after each tile.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// New creates an Engine for one region with the given collaborators.
func New(region geo.Region, catalog Catalog, fetcher domain.Fetcher, reader domain.RasterReader, warper domain.Warper, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		region:  region,
		catalog: catalog,
		fetcher: fetcher,
		reader:  reader,
		warper:  warper,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckReadiness returns nil once the engine has processed at least one tile,
// or an error describing why the process is not yet ready.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("pipeline has not processed any tiles yet")
	}
	return nil
}

// validResolution reports whether the catalog publishes terrain at res.
func validResolution(res float64) bool {
	for _, r := range terrainResolutions {
		if res == r {
			return true
		}
	}
	return false
}

// reportProgress invokes the progress callback when one is configured.
func (e *Engine) reportProgress(done, total int) {
	if e.progress != nil {
		e.progress(done, total)
	}
}

// tileFailure handles a failing tile: counted and swallowed when skipping is
// on, fatal otherwise. Returns nil when the loop should continue.
func (e *Engine) tileFailure(tileID string, err error) error {
	if !e.skipFailedTiles {
		return err
	}
	e.metrics.TilesSkipped.Inc()
	e.logger.Warn("skipping tile", "tile", tileID, "error", err)
	return nil
}

// ensureNoData backfills the collection's published nodata value on rasters
// whose file carries no tag of its own.
func ensureNoData(r *domain.Raster, fallback float64) {
	if !r.HasNoData {
		r.NoData = fallback
		r.HasNoData = true
	}
}
