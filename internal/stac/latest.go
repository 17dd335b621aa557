package stac

import (
	"sort"
	"time"

	"github.com/martibosch/swisstopopy/internal/domain"
)

// LatestOption customizes how Latest derives tile identity and recency.
type LatestOption func(*latestConfig)

type latestConfig struct {
	tileID    func(domain.TileRecord) string
	timestamp func(domain.TileRecord) time.Time
}

// WithTileIDFunc overrides how the tile identity is derived from a record.
// The default is [domain.TileRecord.TileID].
func WithTileIDFunc(f func(domain.TileRecord) string) LatestOption {
	return func(c *latestConfig) { c.tileID = f }
}

// WithTimestampFunc overrides which timestamp orders a tile's versions. The
// default is the record's Datetime.
func WithTimestampFunc(f func(domain.TileRecord) time.Time) LatestOption {
	return func(c *latestConfig) { c.timestamp = f }
}

// Latest reduces a tile table to one record per tile identity, keeping the
// most recent version of each tile. Ties at identical timestamps resolve
// arbitrarily but deterministically: records are stably sorted by descending
// timestamp and the first record of each tile wins, so the input order breaks
// the tie. The result is ordered by tile identity and keeps the input's
// reference system. Applying Latest to its own output is a no-op.
func Latest(t domain.TileTable, opts ...LatestOption) domain.TileTable {
	cfg := latestConfig{
		tileID:    domain.TileRecord.TileID,
		timestamp: func(r domain.TileRecord) time.Time { return r.Datetime },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	byRecency := make([]domain.TileRecord, len(t.Records))
	copy(byRecency, t.Records)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return cfg.timestamp(byRecency[i]).After(cfg.timestamp(byRecency[j]))
	})

	seen := make(map[string]bool, len(byRecency))
	out := domain.TileTable{SRID: t.SRID}
	for _, r := range byRecency {
		id := cfg.tileID(r)
		if seen[id] {
			continue
		}
		seen[id] = true
		out.Records = append(out.Records, r)
	}

	sort.SliceStable(out.Records, func(i, j int) bool {
		return cfg.tileID(out.Records[i]) < cfg.tileID(out.Records[j])
	})
	return out
}
