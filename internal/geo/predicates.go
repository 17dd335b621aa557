package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PointIn reports whether a point lies inside a polygonal geometry. Boundary
// points count as inside.
func PointIn(pt orb.Point, g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, pt)
	case orb.Ring:
		return planar.RingContains(v, pt)
	case orb.Bound:
		return v.Contains(pt)
	default:
		return false
	}
}

// Intersects reports whether two polygonal geometries share any point. The
// test combines a bounding-box rejection, mutual vertex containment and an
// edge crossing sweep, which is exact for the polygon/multipolygon/bound
// geometries that occur in tile tables and footprints.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	ra, rb := exteriorRings(a), exteriorRings(b)
	for _, r := range ra {
		for _, pt := range r {
			if PointIn(pt, b) {
				return true
			}
		}
	}
	for _, r := range rb {
		for _, pt := range r {
			if PointIn(pt, a) {
				return true
			}
		}
	}
	for _, r1 := range ra {
		for _, r2 := range rb {
			if ringsCross(r1, r2) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether outer contains every vertex of inner. Boundary
// vertices count as contained, so a tile contains an identically shaped tile.
// Vertex containment is exact for the convex outer geometries used here.
func Contains(outer, inner orb.Geometry) bool {
	if outer == nil || inner == nil {
		return false
	}
	rs := allRings(inner)
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		for _, pt := range r {
			if !PointIn(pt, outer) {
				return false
			}
		}
	}
	return true
}

func exteriorRings(g orb.Geometry) []orb.Ring {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return []orb.Ring{v[0]}
	case orb.MultiPolygon:
		var rs []orb.Ring
		for _, p := range v {
			if len(p) > 0 {
				rs = append(rs, p[0])
			}
		}
		return rs
	case orb.Ring:
		return []orb.Ring{v}
	case orb.Bound:
		return []orb.Ring{v.ToRing()}
	default:
		return nil
	}
}

func allRings(g orb.Geometry) []orb.Ring {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Ring(v)
	case orb.MultiPolygon:
		var rs []orb.Ring
		for _, p := range v {
			rs = append(rs, p...)
		}
		return rs
	default:
		return exteriorRings(g)
	}
}

func ringsCross(r1, r2 orb.Ring) bool {
	for i := 0; i+1 < len(r1); i++ {
		for j := 0; j+1 < len(r2); j++ {
			if segmentsCross(r1[i], r1[i+1], r2[j], r2[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

func crossProduct(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
