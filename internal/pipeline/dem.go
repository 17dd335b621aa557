package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/stac"
)

// DEMOptions configure a terrain mosaic run.
type DEMOptions struct {
	// Resolution selects the swissalti3d grid, 2 m when zero.
	Resolution float64
	// Datetime restricts the collection to a catalog time interval. When
	// empty, each tile's most recent version is used.
	Datetime string
}

// BuildDEM mosaics the region's terrain tiles into a single GeoTIFF at
// dstPath.
func (e *Engine) BuildDEM(ctx context.Context, dstPath string, opts DEMOptions) error {
	res := opts.Resolution
	if res == 0 {
		res = 2
	}
	if !validResolution(res) {
		return fmt.Errorf("terrain resolution %g: %w", res, ErrUnsupportedResolution)
	}
	if e.region.IsZero() {
		return fmt.Errorf("terrain mosaic needs a bounded region: %w", geo.ErrInvalidRegion)
	}

	run := domain.NewRunInfo()
	logger := e.logger.With("run_id", run.ID)
	logger.Info("terrain mosaic run started", "resolution", res, "datetime", opts.Datetime, "dst", dstPath)

	e.metrics.PipelineRunning.Set(1)
	defer e.metrics.PipelineRunning.Set(0)

	var searchOpts []stac.SearchOption
	if opts.Datetime != "" {
		searchOpts = append(searchOpts, stac.WithDatetime(opts.Datetime))
	}
	table, err := e.catalog.GetCollectionTable(ctx, stac.SwissALTI3DCollection, searchOpts...)
	if err != nil {
		return fmt.Errorf("terrain tiles: %w", err)
	}
	table = table.Filter(func(r domain.TileRecord) bool {
		return strings.HasSuffix(r.AssetHref, ".tif") && r.AssetGSD == res
	})
	if opts.Datetime == "" {
		table = stac.Latest(table)
	}
	if table.Len() == 0 {
		return errors.New("no terrain tiles cover the region")
	}

	paths := make([]string, 0, table.Len())
	for i, rec := range table.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		p, err := e.fetcher.Fetch(ctx, rec.AssetHref)
		if err != nil {
			if ferr := e.tileFailure(rec.TileID(), fmt.Errorf("fetch terrain tile: %w", err)); ferr != nil {
				return ferr
			}
			e.reportProgress(i+1, table.Len())
			continue
		}
		paths = append(paths, p)

		e.metrics.TilesProcessed.Inc()
		e.metrics.TileDuration.Observe(time.Since(start).Seconds())
		e.ready.Store(true)
		e.reportProgress(i+1, table.Len())
	}
	if len(paths) == 0 {
		return errors.New("all terrain tiles failed to download")
	}

	nodata := stac.SwissALTI3DNoData
	err = e.warper.Warp(ctx, dstPath, paths, domain.WarpOptions{
		TargetSRID: table.SRID,
		NoData:     &nodata,
		Creation:   []string{"TILED=YES"},
	})
	if err != nil {
		return fmt.Errorf("mosaic terrain tiles: %w", err)
	}

	logger.Info("terrain mosaic run finished", "tiles", len(paths), "dst", dstPath)
	return nil
}
