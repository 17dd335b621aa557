package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegion(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

	t.Run("polygon passes through", func(t *testing.T) {
		r, err := NewRegion(square, WGS84)
		require.NoError(t, err)
		assert.Equal(t, square, r.Polygon)
		assert.Equal(t, WGS84, r.SRID)
	})

	t.Run("polygon is cloned", func(t *testing.T) {
		r, err := NewRegion(square, WGS84)
		require.NoError(t, err)
		r.Polygon[0][0] = orb.Point{9, 9}
		assert.Equal(t, orb.Point{0, 0}, square[0][0])
	})

	t.Run("bound becomes rectangle", func(t *testing.T) {
		b := orb.Bound{Min: orb.Point{6, 46}, Max: orb.Point{7, 47}}
		r, err := NewRegion(b, WGS84)
		require.NoError(t, err)
		assert.Equal(t, b, r.Polygon.Bound())
	})

	t.Run("multipolygon keeps largest member", func(t *testing.T) {
		small := orb.Polygon{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}}
		big := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {1, 3}, {0, 2}, {0, 0}}}
		r, err := NewRegion(orb.MultiPolygon{small, big}, LV95)
		require.NoError(t, err)
		assert.Equal(t, big, r.Polygon)
	})

	t.Run("missing crs", func(t *testing.T) {
		_, err := NewRegion(square, 0)
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})

	t.Run("degenerate polygon", func(t *testing.T) {
		_, err := NewRegion(orb.Polygon{}, WGS84)
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})

	t.Run("unsupported geometry", func(t *testing.T) {
		_, err := NewRegion(orb.LineString{{0, 0}, {1, 1}}, WGS84)
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})
}

func TestNewRegionFromBounds(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := NewRegionFromBounds(6.5, 46.5, 6.6, 46.6, WGS84)
		require.NoError(t, err)
		assert.False(t, r.IsZero())
		assert.Equal(t, orb.Point{6.5, 46.5}, r.Bound().Min)
		assert.Equal(t, orb.Point{6.6, 46.6}, r.Bound().Max)
	})

	t.Run("inverted bounds", func(t *testing.T) {
		_, err := NewRegionFromBounds(7, 46, 6, 47, WGS84)
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})
}

func TestRegionTo(t *testing.T) {
	t.Run("reprojects", func(t *testing.T) {
		r, err := NewRegionFromBounds(7.43, 46.94, 7.45, 46.96, WGS84)
		require.NoError(t, err)
		ch, err := r.To(LV95)
		require.NoError(t, err)
		assert.Equal(t, LV95, ch.SRID)
		assert.InDelta(t, 2600000, ch.Bound().Center()[0], 5000)
	})

	t.Run("same system unchanged", func(t *testing.T) {
		r, err := NewRegionFromBounds(7.43, 46.94, 7.45, 46.96, WGS84)
		require.NoError(t, err)
		same, err := r.To(WGS84)
		require.NoError(t, err)
		assert.Equal(t, r, same)
	})

	t.Run("zero region unchanged", func(t *testing.T) {
		var r Region
		same, err := r.To(LV95)
		require.NoError(t, err)
		assert.True(t, same.IsZero())
	})
}
