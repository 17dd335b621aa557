// Package nominatim resolves place names to region polygons using the
// OpenStreetMap Nominatim geocoder.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrPlaceNotFound reports a query Nominatim returned no results for.
var ErrPlaceNotFound = errors.New("nominatim: place not found")

// Client looks up administrative boundaries by name.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Nominatim client. An empty baseURL selects the public
// openstreetmap.org instance.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

type result struct {
	DisplayName string            `json:"display_name"`
	GeoJSON     *geojson.Geometry `json:"geojson"`
	BoundingBox []string          `json:"boundingbox"` // latmin, latmax, lonmin, lonmax
}

// Resolve returns the boundary of the named place as a WGS84 region. Places
// that carry no polygon fall back to their bounding box.
func (c *Client) Resolve(ctx context.Context, place string) (geo.Region, error) {
	params := url.Values{
		"q":               {place},
		"format":          {"jsonv2"},
		"polygon_geojson": {"1"},
		"limit":           {"1"},
	}

	c.metrics.GeocodeRequests.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return geo.Region{}, fmt.Errorf("create request: %w", err)
	}
	// the openstreetmap.org usage policy requires an identifying agent
	req.Header.Set("User-Agent", "swisstopopy (github.com/martibosch/swisstopopy)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Region{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Region{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Region{}, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return geo.Region{}, fmt.Errorf("%q: %w", place, ErrPlaceNotFound)
	}

	top := results[0]
	c.logger.Debug("place resolved", "query", place, "display_name", top.DisplayName)

	if top.GeoJSON != nil {
		region, err := geo.NewRegion(top.GeoJSON.Geometry(), geo.WGS84)
		if err == nil {
			return region, nil
		}
		if !errors.Is(err, geo.ErrInvalidRegion) {
			return geo.Region{}, fmt.Errorf("place boundary: %w", err)
		}
	}

	return c.boundingBoxRegion(top, place)
}

// boundingBoxRegion builds a rectangular region for results whose geometry
// is not polygonal, such as bare points of interest.
func (c *Client) boundingBoxRegion(top result, place string) (geo.Region, error) {
	if len(top.BoundingBox) != 4 {
		return geo.Region{}, fmt.Errorf("place %q has no usable boundary: %w", place, geo.ErrInvalidRegion)
	}

	bounds := make([]float64, 4)
	for i, s := range top.BoundingBox {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return geo.Region{}, fmt.Errorf("parse bounding box of %q: %w", place, err)
		}
		bounds[i] = v
	}

	region, err := geo.NewRegionFromBounds(bounds[2], bounds[0], bounds[3], bounds[1], geo.WGS84)
	if err != nil {
		return geo.Region{}, fmt.Errorf("place %q bounding box: %w", place, err)
	}
	c.logger.Debug("falling back to bounding box", "query", place)
	return region, nil
}
