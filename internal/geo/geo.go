// Package geo provides the coordinate handling shared by the catalog client
// and the raster pipeline: EPSG-coded reference systems, the Region type, the
// official approximate WGS84/LV95 conversion, affine grid transforms, and the
// planar predicates used for tile joins.
//
// # Reference systems
//
// Only two systems matter in practice. The catalog API speaks GeoJSON, so
// geometries travel as WGS84 longitude/latitude. Every swisstopo raster
// product is published in the Swiss national planar system LV95 (EPSG:2056),
// in meters. Conversions between the two use the swisstopo approximate
// formulas, which are accurate to about a meter over Switzerland.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SRID identifies a coordinate reference system by its EPSG code.
type SRID int

const (
	// WGS84 is the geographic longitude/latitude system used by the catalog
	// API for item geometries (EPSG:4326, GeoJSON axis order).
	WGS84 SRID = 4326
	// LV95 is the Swiss national planar system (EPSG:2056), in meters.
	LV95 SRID = 2056
)

// ErrInvalidRegion reports a region specification that cannot be normalized
// into a single polygon with a known reference system.
var ErrInvalidRegion = errors.New("geo: invalid region")

// String returns the "EPSG:n" spelling.
func (s SRID) String() string {
	return "EPSG:" + strconv.Itoa(int(s))
}

// Collection metadata spells CRS entries as OGC URIs.
const (
	epsgURIPrefix = "http://www.opengis.net/def/crs/EPSG/0/"
	crs84URI      = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
)

// ParseSRID parses the CRS spellings found in catalog metadata: "EPSG:2056",
// a bare "2056", the OGC URI "http://www.opengis.net/def/crs/EPSG/0/2056",
// and the WGS84 aliases "OGC:CRS84" and its URI form.
func ParseSRID(s string) (SRID, error) {
	raw := strings.TrimSpace(s)
	switch {
	case raw == crs84URI || strings.EqualFold(raw, "OGC:CRS84"):
		return WGS84, nil
	case strings.HasPrefix(raw, epsgURIPrefix):
		raw = strings.TrimPrefix(raw, epsgURIPrefix)
	case len(raw) > 5 && strings.EqualFold(raw[:5], "EPSG:"):
		raw = raw[5:]
	}
	code, err := strconv.Atoi(raw)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("unrecognized CRS %q", s)
	}
	return SRID(code), nil
}
