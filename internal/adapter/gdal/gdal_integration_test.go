//go:build gdal

package gdal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
)

// These tests create and read real GeoTIFFs and need the GDAL library
// installed. Run with: go test -tags=gdal ./internal/adapter/gdal/ -v

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTIFF creates a single-band Float32 GeoTIFF in LV95 with pixel values
// fill(col, row).
func writeTIFF(t *testing.T, path string, originX, originY, res float64, width, height int, fill func(col, row int) float32, nodata *float64) {
	t.Helper()
	register()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, width, height)
	require.NoError(t, err)

	require.NoError(t, ds.SetGeoTransform(geo.NewAffine(originX, originY, res).GeoTransform()))

	sr, err := godal.NewSpatialRefFromEPSG(int(geo.LV95))
	require.NoError(t, err)
	defer sr.Close()
	require.NoError(t, ds.SetSpatialRef(sr))

	band := ds.Bands()[0]
	if nodata != nil {
		require.NoError(t, band.SetNoData(*nodata))
	}

	data := make([]float32, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			data[row*width+col] = fill(col, row)
		}
	}
	require.NoError(t, band.Write(0, 0, data, width, height))
	require.NoError(t, ds.Close())
}

func TestReader_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.tif")
	nodata := -9999.0
	writeTIFF(t, path, 2600000, 1200000, 0.5, 4, 3, func(col, row int) float32 {
		if col == 0 && row == 0 {
			return -9999
		}
		return float32(col + row*10)
	}, &nodata)

	r, err := NewReader(testLogger()).Read(path)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Width)
	assert.Equal(t, 3, r.Height)
	assert.Equal(t, geo.LV95, r.SRID)
	assert.True(t, r.HasNoData)
	assert.Equal(t, -9999.0, r.NoData)

	assert.Equal(t, geo.NewAffine(2600000, 1200000, 0.5), r.Transform)

	assert.False(t, r.Valid(0, 0), "nodata pixel")
	assert.True(t, r.Valid(1, 0))
	assert.InDelta(t, 21.0, float64(r.At(1, 2)), 1e-6)
}

func TestReader_Read_MissingFile(t *testing.T) {
	_, err := NewReader(testLogger()).Read(filepath.Join(t.TempDir(), "nope.tif"))
	assert.Error(t, err)
}

func TestWarper_Warp_Mosaic(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left.tif")
	right := filepath.Join(dir, "right.tif")
	writeTIFF(t, left, 2600000, 1200002, 1, 2, 2, func(col, row int) float32 { return 1 }, nil)
	writeTIFF(t, right, 2600002, 1200002, 1, 2, 2, func(col, row int) float32 { return 2 }, nil)

	dst := filepath.Join(dir, "mosaic.tif")
	nodata := -9999.0
	err := NewWarper(testLogger()).Warp(context.Background(), dst, []string{left, right}, domain.WarpOptions{
		TargetSRID: geo.LV95,
		NoData:     &nodata,
		Creation:   []string{"TILED=YES"},
	})
	require.NoError(t, err)

	r, err := NewReader(testLogger()).Read(dst)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.InDelta(t, 1.0, float64(r.At(0, 0)), 1e-6)
	assert.InDelta(t, 2.0, float64(r.At(3, 1)), 1e-6)
}

func TestWarper_Warp_Resolution(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tif")
	writeTIFF(t, src, 2600000, 1200004, 1, 4, 4, func(col, row int) float32 { return 5 }, nil)

	dst := filepath.Join(dir, "coarse.tif")
	err := NewWarper(testLogger()).Warp(context.Background(), dst, []string{src}, domain.WarpOptions{
		Resolution: 2,
	})
	require.NoError(t, err)

	r, err := NewReader(testLogger()).Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.InDelta(t, 5.0, float64(r.At(1, 1)), 1e-6)
}

func TestWriter_RoundTrip(t *testing.T) {
	src := &domain.Raster{
		Data:      []float32{1, 2, 3, 4, -9999, 6},
		Width:     3,
		Height:    2,
		Transform: geo.NewAffine(2600000, 1200002, 1),
		SRID:      geo.LV95,
		NoData:    -9999,
		HasNoData: true,
	}

	path := filepath.Join(t.TempDir(), "mask.tif")
	require.NoError(t, NewWriter(testLogger()).Write(path, src))

	got, err := NewReader(testLogger()).Read(path)
	require.NoError(t, err)

	assert.Equal(t, src.Data, got.Data)
	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.Transform, got.Transform)
	assert.Equal(t, geo.LV95, got.SRID)
	assert.True(t, got.HasNoData)
	assert.Equal(t, -9999.0, got.NoData)
}

func TestWarper_Warp_NoSources(t *testing.T) {
	err := NewWarper(testLogger()).Warp(context.Background(), filepath.Join(t.TempDir(), "out.tif"), nil, domain.WarpOptions{})
	assert.Error(t, err)
}
