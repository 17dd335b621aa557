package stac

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/martibosch/swisstopopy/internal/domain"
)

// NormalizeItems flattens raw catalog items into tile records, one record per
// (item, asset) pair. Item-level fields repeat across all asset records of an
// item; assets are visited in sorted key order so the output order is
// deterministic. An item with zero assets contributes zero records. An item
// without an id is a data-shape error.
func NormalizeItems(items []Item) ([]domain.TileRecord, error) {
	var records []domain.TileRecord
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrMissingItemID)
		}

		var g orb.Geometry
		if it.Geometry != nil {
			g = it.Geometry.Geometry()
		}

		keys := make([]string, 0, len(it.Assets))
		for k := range it.Assets {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			asset := it.Assets[key]
			records = append(records, domain.TileRecord{
				ID:        it.ID,
				Geometry:  g,
				Datetime:  it.Properties.Datetime,
				Created:   it.Properties.Created,
				Updated:   it.Properties.Updated,
				AssetKey:  key,
				AssetHref: asset.Href,
				AssetType: asset.Type,
				AssetGSD:  asset.GSD,
				AssetEPSG: asset.EPSG,
			})
		}
	}
	return records, nil
}
