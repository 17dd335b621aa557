package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martibosch/swisstopopy/internal/geo"
	"github.com/martibosch/swisstopopy/internal/observability"
)

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestClient_Resolve_Polygon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Lausanne, Switzerland", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("polygon_geojson"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"display_name": "Lausanne, District de Lausanne, Vaud, Schweiz",
			"boundingbox": ["46.5038", "46.6027", "6.5838", "6.6661"],
			"geojson": {
				"type": "Polygon",
				"coordinates": [[[6.58, 46.50], [6.67, 46.50], [6.67, 46.60], [6.58, 46.60], [6.58, 46.50]]]
			}
		}]`))
	}))
	defer srv.Close()

	region, err := newTestClient(srv.URL).Resolve(context.Background(), "Lausanne, Switzerland")
	require.NoError(t, err)

	assert.Equal(t, geo.WGS84, region.SRID)
	b := region.Bound()
	assert.InDelta(t, 6.58, b.Min[0], 1e-9)
	assert.InDelta(t, 46.60, b.Max[1], 1e-9)
}

func TestClient_Resolve_MultiPolygonKeepsLargest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"display_name": "somewhere with islands",
			"geojson": {
				"type": "MultiPolygon",
				"coordinates": [
					[[[0, 0], [0.1, 0], [0.1, 0.1], [0, 0]]],
					[[[5, 5], [6, 5], [6, 6], [5, 6], [5.5, 6.5], [5, 5]]]
				]
			}
		}]`))
	}))
	defer srv.Close()

	region, err := newTestClient(srv.URL).Resolve(context.Background(), "islands")
	require.NoError(t, err)

	// the member with more vertices wins
	assert.InDelta(t, 5.0, region.Bound().Min[0], 1e-9)
}

func TestClient_Resolve_PointFallsBackToBoundingBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"display_name": "some landmark",
			"boundingbox": ["46.5190", "46.5210", "6.5650", "6.5690"],
			"geojson": {"type": "Point", "coordinates": [6.567, 46.520]}
		}]`))
	}))
	defer srv.Close()

	region, err := newTestClient(srv.URL).Resolve(context.Background(), "EPFL")
	require.NoError(t, err)

	b := region.Bound()
	assert.InDelta(t, 6.5650, b.Min[0], 1e-9)
	assert.InDelta(t, 46.5190, b.Min[1], 1e-9)
	assert.InDelta(t, 6.5690, b.Max[0], 1e-9)
	assert.InDelta(t, 46.5210, b.Max[1], 1e-9)
}

func TestClient_Resolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlaceNotFound)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestClient_Resolve_NoUsableBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"display_name": "line feature",
			"geojson": {"type": "LineString", "coordinates": [[6.5, 46.5], [6.6, 46.6]]}
		}]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), "some street")
	assert.ErrorIs(t, err, geo.ErrInvalidRegion)
}

func TestClient_Resolve_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bandwidth exceeded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), "Bern")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
