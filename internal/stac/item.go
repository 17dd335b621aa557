package stac

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Item is one raw catalog search result. Geometry travels as GeoJSON in
// WGS84; Assets maps asset names to their metadata.
type Item struct {
	ID         string            `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties ItemProperties    `json:"properties"`
	Assets     map[string]Asset  `json:"assets"`
}

// ItemProperties carries the item-level timestamps. Absent properties stay
// zero.
type ItemProperties struct {
	Datetime time.Time `json:"datetime"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// Asset describes one downloadable file of an item.
type Asset struct {
	Href string  `json:"href"`
	Type string  `json:"type"`
	GSD  float64 `json:"eo:gsd"`
	EPSG int     `json:"proj:epsg"`
}

// searchResponse is one page of POST /search results.
type searchResponse struct {
	Features []Item `json:"features"`
	Links    []link `json:"links"`
}

// collectionResponse is the subset of GET /collections/{id} this client needs.
type collectionResponse struct {
	ID  string   `json:"id"`
	CRS []string `json:"crs"`
}

// link is a STAC hypermedia link. Paginated search responses carry a
// rel="next" link whose body is replayed (or merged) on the follow-up
// request.
type link struct {
	Rel    string          `json:"rel"`
	Href   string          `json:"href"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Merge  bool            `json:"merge,omitempty"`
}
