package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func TestPointIn(t *testing.T) {
	tile := rect(0, 0, 10, 10)

	assert.True(t, PointIn(orb.Point{5, 5}, tile))
	assert.True(t, PointIn(orb.Point{0, 5}, tile), "boundary counts as inside")
	assert.False(t, PointIn(orb.Point{11, 5}, tile))

	mp := orb.MultiPolygon{rect(0, 0, 1, 1), rect(5, 5, 6, 6)}
	assert.True(t, PointIn(orb.Point{5.5, 5.5}, mp))
	assert.False(t, PointIn(orb.Point{3, 3}, mp))
}

func TestIntersects(t *testing.T) {
	tile := rect(0, 0, 10, 10)

	t.Run("overlapping", func(t *testing.T) {
		assert.True(t, Intersects(tile, rect(5, 5, 15, 15)))
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.False(t, Intersects(tile, rect(20, 20, 30, 30)))
	})

	t.Run("shared edge", func(t *testing.T) {
		assert.True(t, Intersects(tile, rect(10, 0, 20, 10)))
	})

	t.Run("one inside the other", func(t *testing.T) {
		inner := rect(2, 2, 3, 3)
		assert.True(t, Intersects(tile, inner))
		assert.True(t, Intersects(inner, tile))
	})

	t.Run("cross with no contained vertices", func(t *testing.T) {
		vertical := rect(4, -5, 6, 15)
		horizontal := rect(-5, 4, 15, 6)
		assert.True(t, Intersects(vertical, horizontal))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, Intersects(nil, tile))
		assert.False(t, Intersects(tile, nil))
	})
}

func TestContains(t *testing.T) {
	tile := rect(0, 0, 10, 10)

	t.Run("inner tile", func(t *testing.T) {
		assert.True(t, Contains(tile, rect(2, 2, 8, 8)))
	})

	t.Run("identical tiles", func(t *testing.T) {
		assert.True(t, Contains(tile, rect(0, 0, 10, 10)))
	})

	t.Run("poking out", func(t *testing.T) {
		assert.False(t, Contains(tile, rect(5, 5, 15, 15)))
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.False(t, Contains(tile, rect(20, 20, 30, 30)))
	})

	t.Run("multipolygon inner", func(t *testing.T) {
		mp := orb.MultiPolygon{rect(1, 1, 2, 2), rect(7, 7, 9, 9)}
		assert.True(t, Contains(tile, mp))
	})
}
