package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/stac"
)

// CanopyOptions configure a tree canopy run.
type CanopyOptions struct {
	// Datetime restricts the point cloud collection to a catalog time
	// interval. When empty, each tile's most recent version is used.
	Datetime string
	// Threshold is the minimum vegetation returns per cell for canopy,
	// 16 when zero.
	Threshold float64
	// Resolution is the output cell size in meters, 1 when zero.
	Resolution float64
	// TreeValue is the mask value of canopy cells, 1 when zero.
	TreeValue float32
	// NoData is the mask value of non-canopy cells, 255 when zero.
	NoData float64
}

// Vegetation classification range in the swisssurface3d point clouds
// (3 low, 4 medium, 5 high vegetation).
const (
	vegetationClassLow  = 3
	vegetationClassHigh = 5
)

// BuildTreeCanopy derives a canopy mask for the region from the classified
// lidar point clouds and writes the mosaic to dstPath. Cells whose vegetation
// return count reaches the threshold become TreeValue, all others NoData.
func (e *Engine) BuildTreeCanopy(ctx context.Context, dstPath string, opts CanopyOptions) error {
	if e.pointCloud == nil || !e.pointCloud.Available() {
		return ErrCanopyUnavailable
	}
	if e.rasterWriter == nil {
		return errors.New("no raster writer configured")
	}
	if e.region.IsZero() {
		return fmt.Errorf("tree canopy needs a bounded region: %w", geo.ErrInvalidRegion)
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = 16
	}
	res := opts.Resolution
	if res == 0 {
		res = 1
	}
	treeValue := opts.TreeValue
	if treeValue == 0 {
		treeValue = 1
	}
	nodata := opts.NoData
	if nodata == 0 {
		nodata = 255
	}

	run := domain.NewRunInfo()
	logger := e.logger.With("run_id", run.ID)
	logger.Info("tree canopy run started",
		"resolution", res, "threshold", threshold, "datetime", opts.Datetime, "dst", dstPath)

	e.metrics.PipelineRunning.Set(1)
	defer e.metrics.PipelineRunning.Set(0)

	var searchOpts []stac.SearchOption
	if opts.Datetime != "" {
		searchOpts = append(searchOpts, stac.WithDatetime(opts.Datetime))
	}
	table, err := e.catalog.GetCollectionTable(ctx, stac.SwissSurface3DCollection, searchOpts...)
	if err != nil {
		return fmt.Errorf("point cloud tiles: %w", err)
	}
	table = table.Filter(func(r domain.TileRecord) bool {
		return pointCloudAsset(r.AssetHref)
	})
	if opts.Datetime == "" {
		table = stac.Latest(table)
	}
	if table.Len() == 0 {
		return errors.New("no point cloud tiles cover the region")
	}

	workDir, err := os.MkdirTemp("", "canopy-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	masks := make([]string, 0, table.Len())
	for i, rec := range table.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		maskPath, err := e.canopyTile(ctx, rec, workDir, res, threshold, treeValue, nodata)
		if err != nil {
			if ferr := e.tileFailure(rec.TileID(), err); ferr != nil {
				return ferr
			}
			e.reportProgress(i+1, table.Len())
			continue
		}
		masks = append(masks, maskPath)

		e.metrics.TilesProcessed.Inc()
		e.metrics.TileDuration.Observe(time.Since(start).Seconds())
		e.ready.Store(true)
		logger.Debug("tile masked", "tile", rec.TileID())
		e.reportProgress(i+1, table.Len())
	}
	if len(masks) == 0 {
		return errors.New("all point cloud tiles failed")
	}

	err = e.warper.Warp(ctx, dstPath, masks, domain.WarpOptions{
		TargetSRID: table.SRID,
		Resolution: res,
		NoData:     &nodata,
		Creation:   []string{"TILED=YES"},
	})
	if err != nil {
		return fmt.Errorf("mosaic canopy masks: %w", err)
	}

	logger.Info("tree canopy run finished", "tiles", len(masks), "dst", dstPath)
	return nil
}

// canopyTile turns one point cloud tile into a thresholded mask file inside
// workDir.
func (e *Engine) canopyTile(ctx context.Context, rec domain.TileRecord, workDir string, res, threshold float64, treeValue float32, nodata float64) (string, error) {
	archivePath, err := e.fetcher.Fetch(ctx, rec.AssetHref)
	if err != nil {
		return "", fmt.Errorf("fetch point cloud tile: %w", err)
	}
	lasPath, err := extractPointCloud(archivePath)
	if err != nil {
		return "", fmt.Errorf("unpack %s: %w", rec.ID, err)
	}

	countPath := filepath.Join(workDir, rec.ID+"_count.tif")
	err = e.pointCloud.Rasterize(ctx, lasPath, countPath, domain.RasterizeOptions{
		Resolution: res,
		ClassLow:   vegetationClassLow,
		ClassHigh:  vegetationClassHigh,
	})
	if err != nil {
		return "", fmt.Errorf("rasterize %s: %w", rec.ID, err)
	}

	counts, err := e.reader.Read(countPath)
	if err != nil {
		return "", fmt.Errorf("read count grid: %w", err)
	}
	mask := domain.Threshold(counts, threshold, treeValue, float32(nodata))

	maskPath := filepath.Join(workDir, rec.ID+"_mask.tif")
	if err := e.rasterWriter.Write(maskPath, mask); err != nil {
		return "", fmt.Errorf("write mask: %w", err)
	}
	return maskPath, nil
}

// pointCloudAsset reports whether href names a lidar tile the rasterizer can
// consume, directly or after unzipping.
func pointCloudAsset(href string) bool {
	return strings.HasSuffix(href, ".las.zip") ||
		strings.HasSuffix(href, ".las") ||
		strings.HasSuffix(href, ".laz")
}
