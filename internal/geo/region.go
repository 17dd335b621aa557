package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Region is a single polygon of interest with its reference system. The zero
// value means "no region": catalog searches then scan the whole collection.
type Region struct {
	Polygon orb.Polygon
	SRID    SRID
}

// NewRegion normalizes a geometry into a single-polygon region. Polygons pass
// through, bounds become their rectangle, and a multipolygon collapses to its
// largest member by ring vertex count so that consumers always see exactly one
// polygon. Anything else is rejected.
func NewRegion(g orb.Geometry, srid SRID) (Region, error) {
	if srid <= 0 {
		return Region{}, fmt.Errorf("%w: missing CRS", ErrInvalidRegion)
	}
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) < 4 {
			return Region{}, fmt.Errorf("%w: degenerate polygon", ErrInvalidRegion)
		}
		return Region{Polygon: v.Clone(), SRID: srid}, nil
	case orb.MultiPolygon:
		if len(v) == 0 {
			return Region{}, fmt.Errorf("%w: empty multipolygon", ErrInvalidRegion)
		}
		best := v[0]
		for _, p := range v[1:] {
			if ringPoints(p) > ringPoints(best) {
				best = p
			}
		}
		return NewRegion(best, srid)
	case orb.Bound:
		if v.IsEmpty() || v.Min == v.Max {
			return Region{}, fmt.Errorf("%w: degenerate bounds", ErrInvalidRegion)
		}
		return Region{Polygon: v.ToPolygon(), SRID: srid}, nil
	default:
		return Region{}, fmt.Errorf("%w: unsupported geometry %T", ErrInvalidRegion, g)
	}
}

// NewRegionFromBounds builds a region from west/south/east/north bounds.
func NewRegionFromBounds(west, south, east, north float64, srid SRID) (Region, error) {
	if east <= west || north <= south {
		return Region{}, fmt.Errorf("%w: empty bounds [%v %v %v %v]", ErrInvalidRegion, west, south, east, north)
	}
	b := orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}}
	return NewRegion(b, srid)
}

func ringPoints(p orb.Polygon) int {
	n := 0
	for _, r := range p {
		n += len(r)
	}
	return n
}

// IsZero reports whether the region is unset.
func (r Region) IsZero() bool {
	return len(r.Polygon) == 0
}

// Bound returns the region's bounding box in its own reference system.
func (r Region) Bound() orb.Bound {
	return r.Polygon.Bound()
}

// To reprojects the region. Reprojecting the zero region or onto the same
// system returns the region unchanged.
func (r Region) To(dst SRID) (Region, error) {
	if r.IsZero() || r.SRID == dst {
		return r, nil
	}
	g, err := Project(r.Polygon, r.SRID, dst)
	if err != nil {
		return Region{}, err
	}
	return Region{Polygon: g.(orb.Polygon), SRID: dst}, nil
}
