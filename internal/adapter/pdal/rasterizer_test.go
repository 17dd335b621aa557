package pdal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martibosch/swisstopopy/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildPipeline(t *testing.T) {
	spec, err := buildPipeline("/cache/tile.las", "/out/count.tif", domain.RasterizeOptions{
		Resolution: 1,
		ClassLow:   3,
		ClassHigh:  5,
	})
	require.NoError(t, err)

	var decoded struct {
		Pipeline []map[string]any `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(spec, &decoded))
	require.Len(t, decoded.Pipeline, 3)

	reader := decoded.Pipeline[0]
	assert.Equal(t, "readers.las", reader["type"])
	assert.Equal(t, "/cache/tile.las", reader["filename"])

	filter := decoded.Pipeline[1]
	assert.Equal(t, "filters.range", filter["type"])
	assert.Equal(t, "Classification[3:5]", filter["limits"])

	writer := decoded.Pipeline[2]
	assert.Equal(t, "writers.gdal", writer["type"])
	assert.Equal(t, "/out/count.tif", writer["filename"])
	assert.Equal(t, "count", writer["output_type"])
	assert.Equal(t, "GTiff", writer["gdaldriver"])
	assert.Equal(t, 1.0, writer["resolution"])
}

func TestBuildPipeline_NoClassFilter(t *testing.T) {
	spec, err := buildPipeline("in.las", "out.tif", domain.RasterizeOptions{Resolution: 2})
	require.NoError(t, err)

	var decoded struct {
		Pipeline []map[string]any `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(spec, &decoded))
	require.Len(t, decoded.Pipeline, 2, "reader straight into writer")
	assert.Equal(t, "writers.gdal", decoded.Pipeline[1]["type"])
}

func TestRasterizer_Unavailable(t *testing.T) {
	r := &Rasterizer{bin: "", logger: testLogger()}

	assert.False(t, r.Available())

	err := r.Rasterize(context.Background(), "in.las", "out.tif", domain.RasterizeOptions{})
	assert.Error(t, err)
}

func TestNewRasterizer(t *testing.T) {
	// whichever way the probe goes, the result must be usable
	r := NewRasterizer(testLogger())
	if r.Available() {
		assert.NotEmpty(t, r.bin)
	} else {
		assert.Empty(t, r.bin)
	}
}
