package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/stac"
)

// HeightOptions configure a building height run.
type HeightOptions struct {
	// TerrainResolution selects the swissalti3d grid, 0.5 m when zero.
	TerrainResolution float64
	// SurfaceDatetime restricts the surface collection to a catalog time
	// interval. When empty, each tile's most recent version is used.
	SurfaceDatetime string
	// TerrainDatetime restricts the terrain collection the same way.
	TerrainDatetime string
}

// tilePair joins a surface tile with the terrain tile it covers.
type tilePair struct {
	surface domain.TileRecord
	terrain domain.TileRecord
}

// heightAgg accumulates per-footprint tile means for the final average.
type heightAgg struct {
	sum   float64
	tiles int
}

// BuildingHeights computes the mean height above terrain of every building
// footprint in the engine's region. The height of a footprint is the average
// of its per-tile means of surface minus terrain; heights not strictly
// positive are dropped. When a feature sink is configured the surviving
// features are published before returning.
func (e *Engine) BuildingHeights(ctx context.Context, opts HeightOptions) ([]domain.BuildingFeature, error) {
	res := opts.TerrainResolution
	if res == 0 {
		res = 0.5
	}
	if !validResolution(res) {
		return nil, fmt.Errorf("terrain resolution %g: %w", res, ErrUnsupportedResolution)
	}
	if e.footprints == nil {
		return nil, errors.New("no footprint source configured")
	}
	if e.region.IsZero() {
		return nil, fmt.Errorf("building heights need a bounded region: %w", geo.ErrInvalidRegion)
	}

	run := domain.NewRunInfo()
	logger := e.logger.With("run_id", run.ID)
	logger.Info("building height run started", "terrain_resolution", res,
		"surface_datetime", opts.SurfaceDatetime, "terrain_datetime", opts.TerrainDatetime)

	e.metrics.PipelineRunning.Set(1)
	defer e.metrics.PipelineRunning.Set(0)

	outlines, err := e.footprints.Footprints(ctx, e.region)
	if err != nil {
		return nil, fmt.Errorf("fetch footprints: %w", err)
	}
	if len(outlines) == 0 {
		logger.Warn("no building footprints in region")
		return nil, nil
	}

	var surfaceOpts []stac.SearchOption
	if opts.SurfaceDatetime != "" {
		surfaceOpts = append(surfaceOpts, stac.WithDatetime(opts.SurfaceDatetime))
	}
	surface, err := e.catalog.GetCollectionTable(ctx, stac.SwissSurface3DRasterCollection, surfaceOpts...)
	if err != nil {
		return nil, fmt.Errorf("surface tiles: %w", err)
	}

	var terrainOpts []stac.SearchOption
	if opts.TerrainDatetime != "" {
		terrainOpts = append(terrainOpts, stac.WithDatetime(opts.TerrainDatetime))
	}
	terrain, err := e.catalog.GetCollectionTable(ctx, stac.SwissALTI3DCollection, terrainOpts...)
	if err != nil {
		return nil, fmt.Errorf("terrain tiles: %w", err)
	}

	surface = surface.Filter(func(r domain.TileRecord) bool {
		return strings.HasSuffix(r.AssetHref, ".tif")
	})
	terrain = terrain.Filter(func(r domain.TileRecord) bool {
		return strings.HasSuffix(r.AssetHref, ".tif") && r.AssetGSD == res
	})
	if opts.SurfaceDatetime == "" {
		surface = stac.Latest(surface)
	}
	if opts.TerrainDatetime == "" {
		terrain = stac.Latest(terrain)
	}
	if surface.Len() == 0 || terrain.Len() == 0 {
		logger.Warn("catalog returned no usable tiles",
			"surface", surface.Len(), "terrain", terrain.Len())
		return nil, nil
	}

	features, err := reprojectFeatures(outlines, geo.WGS84, surface.SRID)
	if err != nil {
		return nil, fmt.Errorf("reproject footprints: %w", err)
	}

	pairs := matchTiles(surface, terrain, logger)
	if len(pairs) == 0 {
		logger.Warn("no surface and terrain tile pairs cover the region")
		return nil, nil
	}

	heights, err := e.fuseTiles(ctx, pairs, features, logger)
	if err != nil {
		return nil, err
	}

	result := make([]domain.BuildingFeature, 0, len(features))
	for i, f := range features {
		agg := heights[i]
		if agg.tiles == 0 {
			continue
		}
		h := agg.sum / float64(agg.tiles)
		if h <= 0 {
			continue
		}
		f.Height = h
		result = append(result, f)
	}

	e.metrics.FeaturesComputed.Add(float64(len(result)))
	logger.Info("building height run finished",
		"footprints", len(features), "tiles", len(pairs), "features", len(result))

	if e.sink != nil {
		if err := e.sink.Publish(ctx, run, result); err != nil {
			return nil, fmt.Errorf("publish features: %w", err)
		}
	}
	return result, nil
}

// fuseTiles walks the tile pairs sequentially and accumulates per-footprint
// height means.
func (e *Engine) fuseTiles(ctx context.Context, pairs []tilePair, features []domain.BuildingFeature, logger *slog.Logger) ([]heightAgg, error) {
	geoms := make([]orb.Geometry, len(features))
	for i := range features {
		geoms[i] = features[i].Geometry
	}

	heights := make([]heightAgg, len(features))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		stats, err := e.fuseTile(ctx, pair, geoms)
		if err != nil {
			if ferr := e.tileFailure(pair.surface.TileID(), err); ferr != nil {
				return nil, ferr
			}
			e.reportProgress(i+1, len(pairs))
			continue
		}

		for j, s := range stats {
			if mean, ok := s[domain.StatMean]; ok {
				heights[j].sum += mean
				heights[j].tiles++
			}
		}

		e.metrics.TilesProcessed.Inc()
		e.metrics.TileDuration.Observe(time.Since(start).Seconds())
		e.ready.Store(true)
		logger.Debug("tile fused", "tile", pair.surface.TileID())
		e.reportProgress(i+1, len(pairs))
	}
	return heights, nil
}

// fuseTile downloads one tile pair and evaluates per-footprint statistics of
// surface minus terrain on the surface grid. Only footprints intersecting the
// tile geometry contribute; the result maps footprint index to its statistics.
func (e *Engine) fuseTile(ctx context.Context, pair tilePair, geoms []orb.Geometry) (map[int]map[string]float64, error) {
	surfacePath, err := e.fetcher.Fetch(ctx, pair.surface.AssetHref)
	if err != nil {
		return nil, fmt.Errorf("fetch surface tile: %w", err)
	}
	terrainPath, err := e.fetcher.Fetch(ctx, pair.terrain.AssetHref)
	if err != nil {
		return nil, fmt.Errorf("fetch terrain tile: %w", err)
	}

	surface, err := e.reader.Read(surfacePath)
	if err != nil {
		return nil, fmt.Errorf("read surface tile: %w", err)
	}
	terrain, err := e.reader.Read(terrainPath)
	if err != nil {
		return nil, fmt.Errorf("read terrain tile: %w", err)
	}
	ensureNoData(surface, stac.SwissALTI3DNoData)
	ensureNoData(terrain, stac.SwissALTI3DNoData)

	diff, err := domain.SubtractBands(surface, terrain)
	if err != nil {
		return nil, fmt.Errorf("difference %s: %w", pair.surface.TileID(), err)
	}

	idx := make([]int, 0, len(geoms))
	sel := make([]orb.Geometry, 0, len(geoms))
	for j, g := range geoms {
		if geo.Intersects(g, pair.surface.Geometry) {
			idx = append(idx, j)
			sel = append(sel, g)
		}
	}
	if len(sel) == 0 {
		return nil, nil
	}

	stats, err := domain.ZonalStats(sel, diff, []string{domain.StatMean})
	if err != nil {
		return nil, err
	}
	out := make(map[int]map[string]float64, len(idx))
	for k, s := range stats {
		out[idx[k]] = s
	}
	return out, nil
}

// matchTiles pairs every surface tile with the terrain tile it spatially
// contains. Both collections tile the same kilometer grid, so containment
// pairs tiles of the same extent. Surface tiles without terrain coverage are
// logged and dropped.
func matchTiles(surface, terrain domain.TileTable, logger *slog.Logger) []tilePair {
	pairs := make([]tilePair, 0, surface.Len())
	for _, s := range surface.Records {
		matched := false
		for _, t := range terrain.Records {
			if geo.Contains(s.Geometry, t.Geometry) {
				pairs = append(pairs, tilePair{surface: s, terrain: t})
				matched = true
				break
			}
		}
		if !matched {
			logger.Warn("surface tile has no terrain coverage", "tile", s.ID)
		}
	}
	return pairs
}

// reprojectFeatures clones features with their geometries converted between
// reference systems.
func reprojectFeatures(features []domain.BuildingFeature, from, to geo.SRID) ([]domain.BuildingFeature, error) {
	out := make([]domain.BuildingFeature, len(features))
	for i, f := range features {
		g, err := geo.Project(f.Geometry, from, to)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.ID, err)
		}
		out[i] = domain.BuildingFeature{ID: f.ID, Geometry: g}
	}
	return out, nil
}
