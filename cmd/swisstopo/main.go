// Command swisstopo works with the swisstopo STAC catalog: it lists tile
// collections for a region and derives building heights, terrain mosaics,
// and tree canopy masks from the catalog's elevation products.
//
// Usage:
//
//	swisstopo collections -place "Lausanne, Switzerland"
//	swisstopo buildings -west 2611000 -south 1266000 -east 2612000 -north 1267000 -out heights.geojson
//	swisstopo dem -place "Basel, Switzerland" -resolution 2 -out dem.tif
//	swisstopo canopy -place "Bern, Switzerland" -out canopy.tif
//
// A region is given either as LV95 bounds (-west -south -east -north) or as
// a place name resolved through Nominatim (-place). Everything else comes
// from environment variables, with an optional .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"

	"github.com/martibosch/swisstopopy/internal/adapter/fetch"
	"github.com/martibosch/swisstopopy/internal/adapter/gdal"
	httpadapter "github.com/martibosch/swisstopopy/internal/adapter/http"
	kafkaadapter "github.com/martibosch/swisstopopy/internal/adapter/kafka"
	"github.com/martibosch/swisstopopy/internal/adapter/nominatim"
	"github.com/martibosch/swisstopopy/internal/adapter/overpass"
	"github.com/martibosch/swisstopopy/internal/adapter/pdal"
	"github.com/martibosch/swisstopopy/internal/config"
	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
	"github.com/martibosch/swisstopopy/internal/pipeline"
	"github.com/martibosch/swisstopopy/internal/stac"
)

var knownCollections = []string{
	stac.SwissALTI3DCollection,
	stac.SwissImage10Collection,
	stac.SwissSurface3DCollection,
	stac.SwissSurface3DRasterCollection,
}

func main() {
	// A .env file is optional; the environment alone is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch os.Args[1] {
	case "collections":
		runErr = runCollections(ctx, cfg, logger, metrics, os.Args[2:])
	case "buildings":
		runErr = runBuildings(ctx, cfg, logger, metrics, os.Args[2:])
	case "dem":
		runErr = runDEM(ctx, cfg, logger, metrics, os.Args[2:])
	case "canopy":
		runErr = runCanopy(ctx, cfg, logger, metrics, os.Args[2:])
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		logger.Error("command failed", "command", os.Args[1], "error", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: swisstopo <command> [flags]

Commands:
  collections  list catalog collections, with tile counts when a region is given
  buildings    estimate building heights from the surface and terrain models
  dem          mosaic the digital elevation model for a region
  canopy       derive a tree canopy mask from the classified point clouds

Run swisstopo <command> -h for the command's flags.
`)
}

func runCollections(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	rf := addRegionFlags(fs)
	only := fs.String("collection", "", "restrict the listing to one collection id")
	datetime := fs.String("datetime", "", "catalog datetime filter, e.g. 2019-01-01T00:00:00Z/..")
	_ = fs.Parse(args)

	targets := knownCollections
	if *only != "" {
		targets = []string{*only}
	}

	// Without a region there is nothing to count, so just name the
	// collections this tool knows how to work with.
	if !rf.set() {
		for _, id := range targets {
			fmt.Println(id)
		}
		return nil
	}

	region, err := rf.resolve(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	client, err := newCatalogClient(cfg, logger, metrics, region)
	if err != nil {
		return err
	}

	var searchOpts []stac.SearchOption
	if *datetime != "" {
		searchOpts = append(searchOpts, stac.WithDatetime(*datetime))
	}
	for _, id := range targets {
		table, err := client.GetCollectionTable(ctx, id, searchOpts...)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Printf("%-42s %s  records=%d  tiles=%d\n", id, table.SRID, table.Len(), stac.Latest(table).Len())
	}
	return nil
}

func runBuildings(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("buildings", flag.ExitOnError)
	rf := addRegionFlags(fs)
	resolution := fs.Float64("resolution", 0.5, "terrain grid resolution in meters (0.5 or 2)")
	surfaceDatetime := fs.String("surface-datetime", "", "surface catalog datetime filter, e.g. 2019-01-01T00:00:00Z/..")
	terrainDatetime := fs.String("terrain-datetime", "", "terrain catalog datetime filter")
	out := fs.String("out", "-", "output GeoJSON path, - for stdout")
	export := fs.Bool("export", false, "publish computed features to Kafka (needs KAFKA_BROKERS)")
	_ = fs.Parse(args)

	region, err := rf.resolve(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	client, err := newCatalogClient(cfg, logger, metrics, region)
	if err != nil {
		return err
	}
	cache, err := fetch.NewCache(cfg.CacheDir, cfg.FetchTimeout, logger, metrics)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithFootprintSource(overpass.NewClient(cfg.OverpassURL, cfg.OverpassTimeout, logger, metrics)),
		pipeline.WithSkipFailedTiles(cfg.SkipFailedTiles),
		pipeline.WithProgress(progressPrinter()),
	}
	if *export {
		if !cfg.ExportEnabled() {
			return errors.New("-export needs KAFKA_BROKERS")
		}
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithFeatureSink(writer))
	}

	engine := pipeline.New(region, client, cache, gdal.NewReader(logger), gdal.NewWarper(logger),
		logger, metrics, opts...)

	stopStatus := startStatusServer(cfg, engine, logger)
	defer stopStatus()

	features, err := engine.BuildingHeights(ctx, pipeline.HeightOptions{
		TerrainResolution: *resolution,
		SurfaceDatetime:   *surfaceDatetime,
		TerrainDatetime:   *terrainDatetime,
	})
	if err != nil {
		return err
	}
	return writeFeatureCollection(*out, features)
}

func runDEM(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("dem", flag.ExitOnError)
	rf := addRegionFlags(fs)
	resolution := fs.Float64("resolution", 2, "terrain grid resolution in meters (0.5 or 2)")
	datetime := fs.String("datetime", "", "catalog datetime filter, e.g. 2019-01-01T00:00:00Z/..")
	out := fs.String("out", "", "output GeoTIFF path (required)")
	_ = fs.Parse(args)

	if *out == "" {
		return errors.New("-out is required")
	}
	region, err := rf.resolve(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	client, err := newCatalogClient(cfg, logger, metrics, region)
	if err != nil {
		return err
	}
	cache, err := fetch.NewCache(cfg.CacheDir, cfg.FetchTimeout, logger, metrics)
	if err != nil {
		return err
	}

	engine := pipeline.New(region, client, cache, gdal.NewReader(logger), gdal.NewWarper(logger),
		logger, metrics,
		pipeline.WithSkipFailedTiles(cfg.SkipFailedTiles),
		pipeline.WithProgress(progressPrinter()),
	)

	stopStatus := startStatusServer(cfg, engine, logger)
	defer stopStatus()

	if err := engine.BuildDEM(ctx, *out, pipeline.DEMOptions{
		Resolution: *resolution,
		Datetime:   *datetime,
	}); err != nil {
		return err
	}
	logger.Info("terrain mosaic written", "dst", *out)
	return nil
}

func runCanopy(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("canopy", flag.ExitOnError)
	rf := addRegionFlags(fs)
	resolution := fs.Float64("resolution", 1, "output cell size in meters")
	threshold := fs.Float64("threshold", 16, "minimum vegetation returns per cell")
	datetime := fs.String("datetime", "", "catalog datetime filter, e.g. 2019-01-01T00:00:00Z/..")
	out := fs.String("out", "", "output GeoTIFF path (required)")
	_ = fs.Parse(args)

	if *out == "" {
		return errors.New("-out is required")
	}
	region, err := rf.resolve(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	client, err := newCatalogClient(cfg, logger, metrics, region)
	if err != nil {
		return err
	}
	cache, err := fetch.NewCache(cfg.CacheDir, cfg.FetchTimeout, logger, metrics)
	if err != nil {
		return err
	}

	engine := pipeline.New(region, client, cache, gdal.NewReader(logger), gdal.NewWarper(logger),
		logger, metrics,
		pipeline.WithPointCloudRasterizer(pdal.NewRasterizer(logger)),
		pipeline.WithRasterWriter(gdal.NewWriter(logger)),
		pipeline.WithSkipFailedTiles(cfg.SkipFailedTiles),
		pipeline.WithProgress(progressPrinter()),
	)

	stopStatus := startStatusServer(cfg, engine, logger)
	defer stopStatus()

	if err := engine.BuildTreeCanopy(ctx, *out, pipeline.CanopyOptions{
		Datetime:   *datetime,
		Threshold:  *threshold,
		Resolution: *resolution,
	}); err != nil {
		return err
	}
	logger.Info("tree canopy mask written", "dst", *out)
	return nil
}

// regionFlags are the shared flags naming the working region, either as a
// geocoded place or as LV95 bounds.
type regionFlags struct {
	place                    string
	west, south, east, north float64
}

func addRegionFlags(fs *flag.FlagSet) *regionFlags {
	var rf regionFlags
	fs.StringVar(&rf.place, "place", "", `place name resolved through Nominatim, e.g. "Lausanne, Switzerland"`)
	fs.Float64Var(&rf.west, "west", 0, "region west bound (LV95 easting)")
	fs.Float64Var(&rf.south, "south", 0, "region south bound (LV95 northing)")
	fs.Float64Var(&rf.east, "east", 0, "region east bound (LV95 easting)")
	fs.Float64Var(&rf.north, "north", 0, "region north bound (LV95 northing)")
	return &rf
}

func (rf *regionFlags) set() bool {
	return rf.place != "" || rf.west != 0 || rf.south != 0 || rf.east != 0 || rf.north != 0
}

func (rf *regionFlags) resolve(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (geo.Region, error) {
	if rf.place != "" {
		client := nominatim.NewClient(cfg.NominatimURL, cfg.STACTimeout, logger, metrics)
		return client.Resolve(ctx, rf.place)
	}
	if !rf.set() {
		return geo.Region{}, errors.New("a region is required: pass -place or LV95 bounds (-west -south -east -north)")
	}
	return geo.NewRegionFromBounds(rf.west, rf.south, rf.east, rf.north, geo.LV95)
}

func newCatalogClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, region geo.Region) (*stac.Client, error) {
	return stac.NewClient(logger, metrics,
		stac.WithBaseURL(cfg.STACBaseURL),
		stac.WithTimeout(cfg.STACTimeout),
		stac.WithRegion(region),
	)
}

// startStatusServer exposes /healthz, /readyz and /metrics while a run is in
// flight. It reports readiness from the engine's tile progress. The returned
// function drains the server.
func startStatusServer(cfg *config.Config, engine *pipeline.Engine, logger *slog.Logger) func() {
	if cfg.HTTPAddr == "" {
		return func() {}
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", "error", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown error", "error", err)
		}
	}
}

// progressPrinter renders tile progress on stderr, carriage-return style so
// the line updates in place.
func progressPrinter() func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rtiles %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func writeFeatureCollection(path string, features []domain.BuildingFeature) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		feat := geojson.NewFeature(f.Geometry)
		feat.ID = f.ID
		feat.Properties["height"] = f.Height
		fc.Append(feat)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	return nil
}
