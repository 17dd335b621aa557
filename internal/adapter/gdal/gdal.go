// Package gdal adapts raster reading and warping to the GDAL library.
//
// Height rasters are small enough (a swissalti3d tile at 0.5 m is 2000x2000
// pixels) that whole-band reads into memory are fine. Mosaicking and
// reprojection go through gdalwarp switches rather than manual resampling.
package gdal

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
)

var registerOnce sync.Once

// register loads the GDAL drivers. Safe to call from every entry point.
func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Reader implements domain.RasterReader for any format GDAL can open.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a raster reader.
func NewReader(logger *slog.Logger) *Reader {
	register()
	return &Reader{logger: logger}
}

// Read loads the first band of the raster at path into memory.
func (r *Reader) Read(path string) (*domain.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("geotransform of %s: %w", path, err)
	}

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("raster %s has no bands", path)
	}
	band := bands[0]

	data := make([]float32, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("read band 1 of %s: %w", path, err)
	}

	raster := &domain.Raster{
		Data:      data,
		Width:     st.SizeX,
		Height:    st.SizeY,
		Transform: geo.AffineFromGeoTransform(gt),
		SRID:      sridFromWKT(ds.Projection()),
	}
	if nd, ok := band.NoData(); ok {
		raster.NoData = nd
		raster.HasNoData = true
	}

	r.logger.Debug("raster loaded", "path", path, "width", raster.Width, "height", raster.Height)
	return raster, nil
}

// epsgRefs matches authority nodes in both WKT1 and WKT2.
var epsgRefs = regexp.MustCompile(`(?:AUTHORITY\["EPSG","(\d+)"\]|ID\["EPSG",(\d+)\])`)

// sridFromWKT extracts the EPSG code of a projection definition. The
// outermost node's authority trails the nested ones in both WKT flavors,
// so the last match wins. Returns 0 when the definition names none.
func sridFromWKT(wkt string) geo.SRID {
	all := epsgRefs.FindAllStringSubmatch(wkt, -1)
	if len(all) == 0 {
		return 0
	}
	code := all[len(all)-1][1]
	if code == "" {
		code = all[len(all)-1][2]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return geo.SRID(n)
}

// Writer implements domain.RasterWriter, producing single-band Float32
// GeoTIFF files.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a raster writer.
func NewWriter(logger *slog.Logger) *Writer {
	register()
	return &Writer{logger: logger}
}

// Write persists r at path.
func (w *Writer) Write(path string, r *domain.Raster) (err error) {
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, r.Width, r.Height)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := ds.SetGeoTransform(r.Transform.GeoTransform()); err != nil {
		return fmt.Errorf("set geotransform of %s: %w", path, err)
	}
	if r.SRID > 0 {
		sr, err := godal.NewSpatialRefFromEPSG(int(r.SRID))
		if err != nil {
			return fmt.Errorf("spatial ref %s: %w", r.SRID, err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			return fmt.Errorf("set spatial ref of %s: %w", path, err)
		}
	}

	band := ds.Bands()[0]
	if r.HasNoData {
		if err := band.SetNoData(r.NoData); err != nil {
			return fmt.Errorf("set nodata of %s: %w", path, err)
		}
	}
	if err := band.Write(0, 0, r.Data, r.Width, r.Height); err != nil {
		return fmt.Errorf("write band of %s: %w", path, err)
	}

	w.logger.Debug("raster written", "path", path, "width", r.Width, "height", r.Height)
	return nil
}

// Warper implements domain.Warper through gdalwarp.
type Warper struct {
	logger *slog.Logger
}

// NewWarper creates a raster warper.
func NewWarper(logger *slog.Logger) *Warper {
	register()
	return &Warper{logger: logger}
}

// Warp mosaics srcPaths into a GeoTIFF at dstPath, reprojecting and
// resampling according to opts.
func (w *Warper) Warp(ctx context.Context, dstPath string, srcPaths []string, opts domain.WarpOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(srcPaths) == 0 {
		return fmt.Errorf("warp to %s: no source rasters", dstPath)
	}

	srcs := make([]*godal.Dataset, 0, len(srcPaths))
	defer func() {
		for _, ds := range srcs {
			ds.Close()
		}
	}()
	for _, p := range srcPaths {
		ds, err := godal.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		srcs = append(srcs, ds)
	}

	switches := []string{"-of", "GTiff"}
	for _, co := range opts.Creation {
		switches = append(switches, "-co", co)
	}
	if opts.TargetSRID > 0 {
		switches = append(switches, "-t_srs", opts.TargetSRID.String())
	}
	if opts.Resolution > 0 {
		res := strconv.FormatFloat(opts.Resolution, 'f', -1, 64)
		switches = append(switches, "-tr", res, res)
	}
	if opts.NoData != nil {
		switches = append(switches, "-dstnodata", strconv.FormatFloat(*opts.NoData, 'f', -1, 64))
	}

	w.logger.Debug("warping", "dst", dstPath, "sources", len(srcs), "switches", switches)

	out, err := godal.Warp(dstPath, srcs, switches)
	if err != nil {
		return fmt.Errorf("warp to %s: %w", dstPath, err)
	}
	return out.Close()
}
