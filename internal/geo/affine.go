package geo

import "github.com/paulmach/orb"

// Affine maps pixel space to world coordinates:
//
//	x = C + A*col + B*row
//	y = F + D*col + E*row
//
// For the usual north-up raster B and D are zero, A is the pixel width and E
// the (negative) pixel height, and (C, F) is the outer corner of the top-left
// pixel.
type Affine struct {
	A, B, C, D, E, F float64
}

// AffineFromGeoTransform converts GDAL's geotransform array ordering
// [C, A, B, F, D, E] into an Affine.
func AffineFromGeoTransform(gt [6]float64) Affine {
	return Affine{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}
}

// NewAffine returns the north-up transform for a grid whose top-left corner
// sits at (originX, originY) with square pixels of the given size.
func NewAffine(originX, originY, pixelSize float64) Affine {
	return Affine{A: pixelSize, C: originX, E: -pixelSize, F: originY}
}

// GeoTransform returns the GDAL array ordering.
func (a Affine) GeoTransform() [6]float64 {
	return [6]float64{a.C, a.A, a.B, a.F, a.D, a.E}
}

// Apply maps a (possibly fractional) pixel coordinate to world space.
func (a Affine) Apply(col, row float64) (x, y float64) {
	return a.C + a.A*col + a.B*row, a.F + a.D*col + a.E*row
}

// PixelCenter returns the world coordinates of a pixel's center point.
func (a Affine) PixelCenter(col, row int) orb.Point {
	x, y := a.Apply(float64(col)+0.5, float64(row)+0.5)
	return orb.Point{x, y}
}

// Invert returns the world-to-pixel transform. ok is false when the forward
// transform is singular.
func (a Affine) Invert() (inv Affine, ok bool) {
	det := a.A*a.E - a.B*a.D
	if det == 0 {
		return Affine{}, false
	}
	inv = Affine{
		A: a.E / det,
		B: -a.B / det,
		D: -a.D / det,
		E: a.A / det,
	}
	inv.C = -(inv.A*a.C + inv.B*a.F)
	inv.F = -(inv.D*a.C + inv.E*a.F)
	return inv, true
}
