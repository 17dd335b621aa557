// Package overpass retrieves OpenStreetMap building footprints through the
// Overpass API.
//
// Queries select ways and multipolygon relations tagged building within the
// region polygon. Responses use "out geom" so every element carries its node
// coordinates inline and no second lookup is needed.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
)

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// Client implements domain.FootprintSource using an Overpass endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an Overpass client. An empty baseURL selects the public
// overpass-api.de instance.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Footprints returns the building outlines intersecting the region, in WGS84.
func (c *Client) Footprints(ctx context.Context, region geo.Region) ([]domain.BuildingFeature, error) {
	wgs, err := region.To(geo.WGS84)
	if err != nil {
		return nil, fmt.Errorf("normalize region: %w", err)
	}
	if wgs.IsZero() {
		return nil, fmt.Errorf("footprints need a bounded region: %w", geo.ErrInvalidRegion)
	}

	c.metrics.FootprintRequests.Inc()

	form := url.Values{"data": {buildQuery(wgs, c.timeout)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("footprint request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	features := make([]domain.BuildingFeature, 0, len(decoded.Elements))
	for _, el := range decoded.Elements {
		feature, ok := el.toFeature()
		if !ok {
			c.logger.Debug("skipping unusable element", "type", el.Type, "id", el.ID)
			continue
		}
		features = append(features, feature)
	}

	c.logger.Debug("footprints fetched", "count", len(features), "elements", len(decoded.Elements))
	return features, nil
}

// buildQuery renders the Overpass QL statement for a WGS84 region.
func buildQuery(region geo.Region, timeout time.Duration) string {
	poly := polyFilter(region.Polygon[0])
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 180
	}
	return fmt.Sprintf(
		`[out:json][timeout:%d];(way["building"](poly:%q);relation["building"](poly:%q););out geom;`,
		secs, poly, poly)
}

// polyFilter renders a ring as the "lat lon lat lon ..." list the poly
// filter expects. The closing vertex is implicit.
func polyFilter(ring orb.Ring) string {
	pts := ring
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}

	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(p[1], 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p[0], 'f', -1, 64))
	}
	return b.String()
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string   `json:"type"`
	ID       int64    `json:"id"`
	Geometry []coord  `json:"geometry"`
	Members  []member `json:"members"`
}

type member struct {
	Type     string  `json:"type"`
	Role     string  `json:"role"`
	Geometry []coord `json:"geometry"`
}

type coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
