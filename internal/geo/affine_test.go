package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineApply(t *testing.T) {
	// 1 km tile at LV95 (2533000, 1152000), 2 m pixels, north-up.
	a := NewAffine(2533000, 1152000, 2)

	x, y := a.Apply(0, 0)
	assert.Equal(t, 2533000.0, x)
	assert.Equal(t, 1152000.0, y)

	x, y = a.Apply(500, 500)
	assert.Equal(t, 2534000.0, x)
	assert.Equal(t, 1151000.0, y)
}

func TestAffinePixelCenter(t *testing.T) {
	a := NewAffine(100, 200, 10)
	assert.Equal(t, orb.Point{105, 195}, a.PixelCenter(0, 0))
	assert.Equal(t, orb.Point{125, 165}, a.PixelCenter(2, 3))
}

func TestAffineGeoTransform(t *testing.T) {
	gt := [6]float64{2533000, 2, 0, 1152000, 0, -2}
	a := AffineFromGeoTransform(gt)
	assert.Equal(t, gt, a.GeoTransform())
	assert.Equal(t, NewAffine(2533000, 1152000, 2), a)
}

func TestAffineInvert(t *testing.T) {
	t.Run("north-up round trip", func(t *testing.T) {
		a := NewAffine(2533000, 1152000, 0.5)
		inv, ok := a.Invert()
		require.True(t, ok)

		x, y := a.Apply(123, 456)
		col, row := inv.Apply(x, y)
		assert.InDelta(t, 123, col, 1e-9)
		assert.InDelta(t, 456, row, 1e-9)
	})

	t.Run("rotated round trip", func(t *testing.T) {
		a := Affine{A: 2, B: 0.5, C: 100, D: 0.3, E: -2, F: 500}
		inv, ok := a.Invert()
		require.True(t, ok)

		x, y := a.Apply(3, 4)
		col, row := inv.Apply(x, y)
		assert.InDelta(t, 3, col, 1e-9)
		assert.InDelta(t, 4, row, 1e-9)
	})

	t.Run("singular", func(t *testing.T) {
		_, ok := Affine{}.Invert()
		assert.False(t, ok)
	})
}
