package overpass

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/martibosch/swisstopopy/internal/domain"
)

// toFeature converts an Overpass element into a building footprint. Elements
// whose geometry cannot form a closed polygon report ok=false.
func (el element) toFeature() (domain.BuildingFeature, bool) {
	switch el.Type {
	case "way":
		ring, ok := closedRing(el.Geometry)
		if !ok {
			return domain.BuildingFeature{}, false
		}
		return domain.BuildingFeature{
			ID:       fmt.Sprintf("way/%d", el.ID),
			Geometry: orb.Polygon{ring},
		}, true
	case "relation":
		geom, ok := assembleMultipolygon(el.Members)
		if !ok {
			return domain.BuildingFeature{}, false
		}
		return domain.BuildingFeature{
			ID:       fmt.Sprintf("relation/%d", el.ID),
			Geometry: geom,
		}, true
	}
	return domain.BuildingFeature{}, false
}

// closedRing converts a way geometry into a closed ring.
func closedRing(coords []coord) (orb.Ring, bool) {
	if len(coords) < 3 {
		return nil, false
	}
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, orb.Point{c.Lon, c.Lat})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil, false
	}
	return ring, true
}

// assembleMultipolygon stitches relation member ways into rings and assigns
// each hole to the first outer ring containing it. Returns a Polygon for a
// single outer ring and a MultiPolygon otherwise.
func assembleMultipolygon(members []member) (orb.Geometry, bool) {
	var outerSegs, innerSegs [][]orb.Point
	for _, m := range members {
		if m.Type != "way" || len(m.Geometry) == 0 {
			continue
		}
		seg := make([]orb.Point, 0, len(m.Geometry))
		for _, c := range m.Geometry {
			seg = append(seg, orb.Point{c.Lon, c.Lat})
		}
		if m.Role == "inner" {
			innerSegs = append(innerSegs, seg)
		} else {
			// untagged members default to outer, as OSM editors do
			outerSegs = append(outerSegs, seg)
		}
	}

	outers := stitch(outerSegs)
	if len(outers) == 0 {
		return nil, false
	}

	polys := make([]orb.Polygon, len(outers))
	for i, outer := range outers {
		polys[i] = orb.Polygon{outer}
	}
	for _, hole := range stitch(innerSegs) {
		for i := range polys {
			if planar.RingContains(polys[i][0], hole[0]) {
				polys[i] = append(polys[i], hole)
				break
			}
		}
	}

	if len(polys) == 1 {
		return polys[0], true
	}
	return orb.MultiPolygon(polys), true
}

// stitch joins open polylines end to end and returns the closed rings.
// Shared endpoints match exactly because Overpass emits identical node
// coordinates on both ways. Chains that never close are dropped.
func stitch(segments [][]orb.Point) []orb.Ring {
	remaining := make([][]orb.Point, 0, len(segments))
	for _, s := range segments {
		if len(s) >= 2 {
			remaining = append(remaining, s)
		}
	}

	var rings []orb.Ring
	for len(remaining) > 0 {
		chain := remaining[0]
		remaining = remaining[1:]

		for chain[0] != chain[len(chain)-1] {
			extended := false
			for i, seg := range remaining {
				switch chain[len(chain)-1] {
				case seg[0]:
					chain = append(chain, seg[1:]...)
				case seg[len(seg)-1]:
					for j := len(seg) - 2; j >= 0; j-- {
						chain = append(chain, seg[j])
					}
				default:
					continue
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				extended = true
				break
			}
			if !extended {
				break
			}
		}

		if len(chain) >= 4 && chain[0] == chain[len(chain)-1] {
			rings = append(rings, orb.Ring(chain))
		}
	}
	return rings
}
