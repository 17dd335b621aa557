package stac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/geo"
)

func tileRecord(id string, year int, assetKey string) domain.TileRecord {
	return domain.TileRecord{
		ID:       id,
		Datetime: time.Date(year, 4, 15, 0, 0, 0, 0, time.UTC),
		AssetKey: assetKey,
	}
}

func TestLatest(t *testing.T) {
	t.Run("one record per tile", func(t *testing.T) {
		table := domain.TileTable{
			SRID: geo.LV95,
			Records: []domain.TileRecord{
				tileRecord("swissalti3d_2019_2533-1152", 2019, "a"),
				tileRecord("swissalti3d_2021_2533-1152", 2021, "a"),
				tileRecord("swissalti3d_2019_2533-1153", 2019, "a"),
				tileRecord("swissalti3d_2024_2533-1152", 2024, "a"),
			},
		}

		latest := Latest(table)
		require.Equal(t, 2, latest.Len())
		assert.LessOrEqual(t, latest.Len(), table.Len())
		assert.Equal(t, geo.LV95, latest.SRID)

		// ordered by tile identity, each carrying its newest version
		assert.Equal(t, "swissalti3d_2024_2533-1152", latest.Records[0].ID)
		assert.Equal(t, "swissalti3d_2019_2533-1153", latest.Records[1].ID)
	})

	t.Run("idempotent", func(t *testing.T) {
		table := domain.TileTable{
			Records: []domain.TileRecord{
				tileRecord("swissalti3d_2019_2533-1152", 2019, "a"),
				tileRecord("swissalti3d_2021_2533-1152", 2021, "a"),
				tileRecord("swissalti3d_2019_2600-1199", 2019, "a"),
			},
		}

		once := Latest(table)
		twice := Latest(once)
		assert.Equal(t, once, twice)
	})

	t.Run("single record unchanged", func(t *testing.T) {
		table := domain.TileTable{
			SRID:    geo.LV95,
			Records: []domain.TileRecord{tileRecord("swissalti3d_2019_2533-1152", 2019, "a")},
		}

		latest := Latest(table)
		assert.Equal(t, table, latest)
	})

	t.Run("all records share one tile", func(t *testing.T) {
		table := domain.TileTable{
			Records: []domain.TileRecord{
				tileRecord("swissalti3d_2019_2533-1152", 2019, "a"),
				tileRecord("swissalti3d_2020_2533-1152", 2020, "a"),
				tileRecord("swissalti3d_2021_2533-1152", 2021, "a"),
			},
		}

		latest := Latest(table)
		require.Equal(t, 1, latest.Len())
		assert.Equal(t, "swissalti3d_2021_2533-1152", latest.Records[0].ID)
	})

	t.Run("tie keeps the earlier input record", func(t *testing.T) {
		table := domain.TileTable{
			Records: []domain.TileRecord{
				tileRecord("swissalti3d_2019_2533-1152", 2019, "first"),
				tileRecord("swissalti3d_2019_2533-1152", 2019, "second"),
			},
		}

		latest := Latest(table)
		require.Equal(t, 1, latest.Len())
		assert.Equal(t, "first", latest.Records[0].AssetKey)
	})

	t.Run("empty table", func(t *testing.T) {
		latest := Latest(domain.TileTable{SRID: geo.LV95})
		assert.Zero(t, latest.Len())
		assert.Equal(t, geo.LV95, latest.SRID)
	})

	t.Run("custom identity and timestamp", func(t *testing.T) {
		older := domain.TileRecord{ID: "x-1", AssetKey: "old", Created: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		newer := domain.TileRecord{ID: "y-1", AssetKey: "new", Created: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
		table := domain.TileTable{Records: []domain.TileRecord{older, newer}}

		latest := Latest(table,
			WithTileIDFunc(func(r domain.TileRecord) string {
				i := len(r.ID) - 1
				return r.ID[i:]
			}),
			WithTimestampFunc(func(r domain.TileRecord) time.Time { return r.Created }),
		)
		require.Equal(t, 1, latest.Len())
		assert.Equal(t, "new", latest.Records[0].AssetKey)
	})
}
