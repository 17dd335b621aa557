package domain

import (
	"fmt"
	"math"

	"github.com/martibosch/swisstopopy/internal/geo"
)

// Raster is a single band of pixel data with its grid georeferencing. Data is
// row-major with the first row at the top of the grid, matching Transform.
type Raster struct {
	Data      []float32
	Width     int
	Height    int
	Transform geo.Affine
	SRID      geo.SRID
	NoData    float64
	HasNoData bool
}

// At returns the raw value at (col, row).
func (r *Raster) At(col, row int) float32 {
	return r.Data[row*r.Width+col]
}

// Valid reports whether the value at (col, row) is an actual measurement
// rather than nodata.
func (r *Raster) Valid(col, row int) bool {
	v := r.At(col, row)
	if math.IsNaN(float64(v)) {
		return false
	}
	return !r.HasNoData || float64(v) != r.NoData
}

// Threshold builds a mask on the source grid: cells whose value is valid and
// at least min become value, every other cell becomes nodata.
func Threshold(r *Raster, min float64, value, nodata float32) *Raster {
	mask := &Raster{
		Data:      make([]float32, len(r.Data)),
		Width:     r.Width,
		Height:    r.Height,
		Transform: r.Transform,
		SRID:      r.SRID,
		NoData:    float64(nodata),
		HasNoData: true,
	}
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			i := row*r.Width + col
			if r.Valid(col, row) && float64(r.Data[i]) >= min {
				mask.Data[i] = value
			} else {
				mask.Data[i] = nodata
			}
		}
	}
	return mask
}

// SubtractBands returns surface minus terrain evaluated on the surface grid.
// The rasters must be co-registered: same pixel count in both dimensions.
// Pixels that are nodata on either side become NaN in the result, which
// carries no nodata value of its own.
func SubtractBands(surface, terrain *Raster) (*Raster, error) {
	if surface.Width != terrain.Width || surface.Height != terrain.Height {
		return nil, fmt.Errorf("rasters are not co-registered: %dx%d vs %dx%d",
			surface.Width, surface.Height, terrain.Width, terrain.Height)
	}
	diff := &Raster{
		Data:      make([]float32, len(surface.Data)),
		Width:     surface.Width,
		Height:    surface.Height,
		Transform: surface.Transform,
		SRID:      surface.SRID,
	}
	nan := float32(math.NaN())
	for row := 0; row < surface.Height; row++ {
		for col := 0; col < surface.Width; col++ {
			i := row*surface.Width + col
			if !surface.Valid(col, row) || !terrain.Valid(col, row) {
				diff.Data[i] = nan
				continue
			}
			diff.Data[i] = surface.Data[i] - terrain.Data[i]
		}
	}
	return diff, nil
}
