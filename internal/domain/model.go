package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/martibosch/swisstopopy/internal/geo"
)

// TileRecord is one (item, asset) pair from a catalog search, flattened.
// Item-level fields are repeated across all asset records of the same item;
// Asset* fields belong to the single asset this record represents.
type TileRecord struct {
	ID       string
	Geometry orb.Geometry
	Datetime time.Time
	Created  time.Time // zero when the item carries no created property
	Updated  time.Time // zero when the item carries no updated property

	AssetKey  string
	AssetHref string
	AssetType string  // media type as declared by the catalog
	AssetGSD  float64 // ground sample distance in meters, 0 when absent
	AssetEPSG int     // per-asset EPSG code, 0 when absent
}

// TileID returns the spatial tile identity: the portion of the item id after
// the final underscore. Records sharing a TileID are temporal versions of the
// same tile.
func (r TileRecord) TileID() string {
	if i := strings.LastIndexByte(r.ID, '_'); i >= 0 {
		return r.ID[i+1:]
	}
	return r.ID
}

// TileTable is a set of tile records whose geometries share one reference
// system.
type TileTable struct {
	SRID    geo.SRID
	Records []TileRecord
}

// Len returns the number of records.
func (t TileTable) Len() int {
	return len(t.Records)
}

// Filter returns a table holding the records that satisfy keep, preserving
// the reference system.
func (t TileTable) Filter(keep func(TileRecord) bool) TileTable {
	out := TileTable{SRID: t.SRID}
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// BuildingFeature is a footprint polygon with its OpenStreetMap identity and,
// once fusion has run, an estimated height in meters.
type BuildingFeature struct {
	ID       string
	Geometry orb.Geometry
	Height   float64
}

// RunInfo identifies one pipeline invocation. It travels with exported
// features so downstream consumers can group messages by run.
type RunInfo struct {
	ID        string
	StartedAt time.Time
}

// NewRunInfo stamps a fresh run identity from the package clock.
func NewRunInfo() RunInfo {
	return RunInfo{
		ID:        uuid.NewString(),
		StartedAt: clock.Now().UTC(),
	}
}
