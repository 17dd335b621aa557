package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/martibosch/swisstopopy/internal/geo"
)

// Statistic names understood by ZonalStats.
const (
	StatCount = "count"
	StatMin   = "min"
	StatMax   = "max"
	StatMean  = "mean"
	StatSum   = "sum"
)

// ErrBadTransform reports a raster whose grid transform cannot be inverted,
// so no world coordinate maps back to a pixel.
var ErrBadTransform = errors.New("domain: raster transform is not invertible")

// ZonalStats aggregates, per input geometry, the raster pixels whose centers
// fall inside that geometry (boundary centers count as inside). Results align
// with the input geometry order. Unnamed stats default to the mean. A
// geometry covering no valid pixel yields a map carrying only "count" (zero)
// when requested, with the value statistics absent.
func ZonalStats(geoms []orb.Geometry, r *Raster, stats []string) ([]map[string]float64, error) {
	if len(stats) == 0 {
		stats = []string{StatMean}
	}
	for _, s := range stats {
		switch s {
		case StatCount, StatMin, StatMax, StatMean, StatSum:
		default:
			return nil, fmt.Errorf("unknown statistic %q", s)
		}
	}
	inv, ok := r.Transform.Invert()
	if !ok {
		return nil, ErrBadTransform
	}

	out := make([]map[string]float64, len(geoms))
	for i, g := range geoms {
		out[i] = zonalOne(g, r, inv, stats)
	}
	return out, nil
}

func zonalOne(g orb.Geometry, r *Raster, inv geo.Affine, stats []string) map[string]float64 {
	colMin, rowMin, colMax, rowMax := pixelWindow(g.Bound(), inv, r.Width, r.Height)

	var (
		n        int
		sum      float64
		min, max float64
	)
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			if !r.Valid(col, row) {
				continue
			}
			if !geo.PointIn(r.Transform.PixelCenter(col, row), g) {
				continue
			}
			v := float64(r.At(col, row))
			if n == 0 || v < min {
				min = v
			}
			if n == 0 || v > max {
				max = v
			}
			sum += v
			n++
		}
	}

	result := make(map[string]float64, len(stats))
	for _, s := range stats {
		switch s {
		case StatCount:
			result[s] = float64(n)
		case StatSum:
			if n > 0 {
				result[s] = sum
			}
		case StatMean:
			if n > 0 {
				result[s] = sum / float64(n)
			}
		case StatMin:
			if n > 0 {
				result[s] = min
			}
		case StatMax:
			if n > 0 {
				result[s] = max
			}
		}
	}
	return result
}

// pixelWindow maps a world-space bound onto the clamped pixel index window
// that could contain it.
func pixelWindow(b orb.Bound, inv geo.Affine, width, height int) (colMin, rowMin, colMax, rowMax int) {
	corners := [4]orb.Point{
		b.Min,
		b.Max,
		{b.Min[0], b.Max[1]},
		{b.Max[0], b.Min[1]},
	}
	cMin, rMin := math.Inf(1), math.Inf(1)
	cMax, rMax := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		c, r := inv.Apply(p[0], p[1])
		cMin, cMax = math.Min(cMin, c), math.Max(cMax, c)
		rMin, rMax = math.Min(rMin, r), math.Max(rMax, r)
	}
	colMin = clamp(int(math.Floor(cMin)), 0, width-1)
	colMax = clamp(int(math.Ceil(cMax)), 0, width-1)
	rowMin = clamp(int(math.Floor(rMin)), 0, height-1)
	rowMax = clamp(int(math.Ceil(rMax)), 0, height-1)
	return colMin, rowMin, colMax, rowMax
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
