package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
)

// defaultTimeout bounds each catalog round trip.
const defaultTimeout = 30 * time.Second

// searchLimit is the page size requested from the search endpoint.
const searchLimit = 100

// Client is a region-scoped catalog client. A client constructed without a
// region scans whole collections.
type Client struct {
	baseURL    string
	httpClient *http.Client
	region     geo.Region // held in WGS84, zero when unscoped
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithRegion scopes searches to a region. The region is reprojected to WGS84
// once, up front.
func WithRegion(r geo.Region) Option {
	return func(c *Client) { c.region = r }
}

// WithBaseURL points the client at a different catalog root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout bounds each catalog round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a catalog client.
func NewClient(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    BaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.region.IsZero() {
		r, err := c.region.To(geo.WGS84)
		if err != nil {
			return nil, fmt.Errorf("normalize region: %w", err)
		}
		c.region = r
	}
	return c, nil
}

// SearchOption refines a single GetCollectionTable call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	datetime string
	srid     geo.SRID
}

// WithDatetime filters the search temporally. Accepts a single RFC 3339
// instant or a "start/end" interval with ".." for an open end; the value is
// forwarded to the API verbatim.
func WithDatetime(datetime string) SearchOption {
	return func(c *searchConfig) { c.datetime = datetime }
}

// WithCollectionCRS skips CRS discovery and labels the returned table with
// srid instead.
func WithCollectionCRS(srid geo.SRID) SearchOption {
	return func(c *searchConfig) { c.srid = srid }
}

// GetCollectionTable searches one collection and returns the normalized tile
// table for the items intersecting the client region (all items when the
// client is unscoped). Record geometries are reprojected from WGS84 to the
// collection's declared reference system, discovered from the collection
// metadata unless overridden per call.
func (c *Client) GetCollectionTable(ctx context.Context, collectionID string, opts ...SearchOption) (domain.TileTable, error) {
	var cfg searchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	srid := cfg.srid
	if srid == 0 {
		var err error
		srid, err = c.collectionSRID(ctx, collectionID)
		if err != nil {
			return domain.TileTable{}, err
		}
	}

	items, err := c.search(ctx, collectionID, cfg.datetime)
	if err != nil {
		return domain.TileTable{}, err
	}

	records, err := NormalizeItems(items)
	if err != nil {
		return domain.TileTable{}, err
	}
	c.metrics.ItemsNormalized.Add(float64(len(items)))

	for i := range records {
		if records[i].Geometry == nil {
			continue
		}
		g, err := geo.Project(records[i].Geometry, geo.WGS84, srid)
		if err != nil {
			return domain.TileTable{}, fmt.Errorf("reproject item %s: %w", records[i].ID, err)
		}
		records[i].Geometry = g
	}

	c.logger.Debug("collection table ready",
		"collection", collectionID,
		"records", len(records),
		"crs", srid.String(),
	)
	return domain.TileTable{SRID: srid, Records: records}, nil
}

// collectionSRID reads a collection's reference system from its metadata,
// taking the first entry of the crs array.
func (c *Client) collectionSRID(ctx context.Context, collectionID string) (geo.SRID, error) {
	var col collectionResponse
	dest := c.baseURL + "/collections/" + url.PathEscape(collectionID)
	if err := c.doJSON(ctx, http.MethodGet, dest, nil, &col); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return 0, fmt.Errorf("collection %s: %w", collectionID, ErrCollectionNotFound)
		}
		return 0, err
	}
	if len(col.CRS) == 0 {
		return 0, fmt.Errorf("collection %s declares no crs", collectionID)
	}
	srid, err := geo.ParseSRID(col.CRS[0])
	if err != nil {
		return 0, fmt.Errorf("collection %s: %w", collectionID, err)
	}
	return srid, nil
}

// search runs an item search and follows rel="next" links until the catalog
// stops paginating.
func (c *Client) search(ctx context.Context, collectionID, datetime string) ([]Item, error) {
	base := map[string]any{
		"collections": []string{collectionID},
		"limit":       searchLimit,
	}
	if !c.region.IsZero() {
		base["intersects"] = geojson.NewGeometry(c.region.Polygon)
	}
	if datetime != "" {
		base["datetime"] = datetime
	}

	var (
		items  []Item
		method = http.MethodPost
		dest   = c.baseURL + "/search"
		body   any = base
	)
	for {
		var page searchResponse
		if err := c.doJSON(ctx, method, dest, body, &page); err != nil {
			return nil, err
		}
		c.metrics.SearchRequests.Inc()
		items = append(items, page.Features...)

		next := findLink(page.Links, "next")
		if next == nil {
			return items, nil
		}

		dest = next.Href
		method = http.MethodPost
		if next.Method != "" {
			method = next.Method
		}
		switch {
		case len(next.Body) > 0:
			var nextBody map[string]any
			if err := json.Unmarshal(next.Body, &nextBody); err != nil {
				return nil, fmt.Errorf("decode next link body: %w", err)
			}
			if next.Merge {
				merged := make(map[string]any, len(base)+len(nextBody))
				for k, v := range base {
					merged[k] = v
				}
				for k, v := range nextBody {
					merged[k] = v
				}
				body = merged
			} else {
				body = nextBody
			}
		case method == http.MethodGet:
			// cursor travels in the href
			body = nil
		default:
			body = base
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, dest string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, dest, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: string(excerpt)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError carries the HTTP status of a failed catalog call.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog API error: status %d: %s", e.status, e.body)
}

func findLink(links []link, rel string) *link {
	for i := range links {
		if links[i].Rel == rel {
			return &links[i]
		}
	}
	return nil
}
