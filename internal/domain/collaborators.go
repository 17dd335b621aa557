package domain

import (
	"context"

	"github.com/martibosch/swisstopopy/internal/geo"
)

// Fetcher materializes remote assets on local disk.
type Fetcher interface {
	// Fetch downloads url unless a cached copy exists and returns the local
	// file path. Fetching the same url twice returns the same path.
	Fetch(ctx context.Context, url string) (string, error)
}

// RasterReader opens local raster files.
type RasterReader interface {
	// Read loads the first band of the raster at path.
	Read(path string) (*Raster, error)
}

// WarpOptions control how source rasters are merged into a destination file.
type WarpOptions struct {
	TargetSRID geo.SRID // reproject the output when non-zero
	Resolution float64  // square output pixel size in target units, source resolution when 0
	NoData     *float64 // destination nodata value
	Creation   []string // driver creation options, e.g. "TILED=YES"
}

// Warper mosaics local rasters into a single destination file.
type Warper interface {
	Warp(ctx context.Context, dstPath string, srcPaths []string, opts WarpOptions) error
}

// RasterWriter persists in-memory rasters as single-band files.
type RasterWriter interface {
	Write(path string, r *Raster) error
}

// RasterizeOptions control gridding of point cloud returns.
type RasterizeOptions struct {
	Resolution float64 // output cell size in source units
	ClassLow   int     // lowest LAS classification kept
	ClassHigh  int     // highest kept, 0 disables class filtering
}

// PointCloudRasterizer grids point cloud returns into per-cell count rasters.
// Implementations may depend on tooling that is absent at runtime, so
// Available reports whether Rasterize can work at all.
type PointCloudRasterizer interface {
	Available() bool
	Rasterize(ctx context.Context, srcPath, dstPath string, opts RasterizeOptions) error
}

// FootprintSource returns building footprints intersecting a region.
type FootprintSource interface {
	// Footprints returns the building outlines whose geometry intersects the
	// region, in WGS84 longitude/latitude, with Height unset.
	Footprints(ctx context.Context, region geo.Region) ([]BuildingFeature, error)
}

// FeatureSink publishes computed building features downstream.
type FeatureSink interface {
	Publish(ctx context.Context, run RunInfo, features []BuildingFeature) error
}
