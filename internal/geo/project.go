package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// The swisstopo approximate conversion between WGS84 and LV95 ("Approximate
// formulas for the transformation between Swiss projection coordinates and
// WGS84", swisstopo). Input latitude and longitude are converted to
// arc-seconds, offset by the Bern fundamental point and scaled before the
// polynomial is evaluated. Accuracy is about one meter inside Switzerland.

// ToLV95 is an orb.Projection from WGS84 longitude/latitude to LV95
// easting/northing in meters.
func ToLV95(p orb.Point) orb.Point {
	phi := (p[1]*3600 - 169028.66) / 10000 // latitude, scaled arc-seconds
	lam := (p[0]*3600 - 26782.5) / 10000   // longitude, scaled arc-seconds

	e := 2600072.37 +
		211455.93*lam -
		10938.51*lam*phi -
		0.36*lam*phi*phi -
		44.54*lam*lam*lam
	n := 1200147.07 +
		308807.95*phi +
		3745.25*lam*lam +
		76.63*phi*phi -
		194.56*lam*lam*phi +
		119.79*phi*phi*phi
	return orb.Point{e, n}
}

// ToWGS84 is an orb.Projection from LV95 easting/northing back to WGS84
// longitude/latitude.
func ToWGS84(p orb.Point) orb.Point {
	y := (p[0] - 2600000) / 1000000
	x := (p[1] - 1200000) / 1000000

	lam := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y
	phi := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x
	// the polynomial yields a value in units of 10000 arc-seconds
	return orb.Point{lam * 100 / 36, phi * 100 / 36}
}

// Project reprojects a geometry between the supported reference systems. The
// input geometry is left untouched; a projected clone is returned. Projecting
// a geometry onto its own system returns a plain clone.
func Project(g orb.Geometry, from, to SRID) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	clone := orb.Clone(g)
	if from == to {
		return clone, nil
	}
	switch {
	case from == WGS84 && to == LV95:
		return project.Geometry(clone, ToLV95), nil
	case from == LV95 && to == WGS84:
		return project.Geometry(clone, ToWGS84), nil
	default:
		return nil, fmt.Errorf("unsupported reprojection %v -> %v", from, to)
	}
}
