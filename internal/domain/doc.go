// Package domain models swisstopo catalog metadata and the building data
// derived from it.
//
// # Data source
//
// All elevation and imagery products come from the Swiss federal geoportal's
// STAC API at https://data.geo.admin.ch/api/stac/v0.9. A search returns
// catalog items; each item describes one spatiotemporal tile of a collection
// and carries a map of named assets (the downloadable files: GeoTIFFs, point
// cloud archives, XYZ grids) with per-asset metadata such as the download
// href and the ground sample distance. The domain representation flattens
// this into [TileRecord], one record per (item, asset) pair, grouped into a
// [TileTable] that remembers the reference system of its geometries.
//
// # Tile identity
//
// Item ids follow the convention "<product>_<year>_<easting>-<northing>",
// for example "swissalti3d_2019_2533-1152". Everything after the final
// underscore names the fixed 1 km spatial tile ("2533-1152", kilometers in
// LV95); items sharing that suffix are temporal versions of the same tile.
// [TileRecord.TileID] derives it.
//
// # Height model
//
// Building heights are estimated by differencing two co-registered elevation
// products: swissSURFACE3D Raster (a surface model including vegetation and
// construction) minus swissALTI3D (a terrain model without them). The
// difference is evaluated per building footprint as a zonal statistic (see
// [ZonalStats]), averaging across tiles where a footprint straddles a tile
// boundary. Heights at or below zero are discarded downstream: they mark
// footprints newer than the elevation snapshot, or noise.
//
// # Nodata conventions
//
// swissALTI3D publishes -9999 as its nodata value and SWISSIMAGE uses 0.
// Subtracting rasters converts nodata on either side into NaN so that zonal
// aggregation can skip missing pixels uniformly regardless of the source
// convention.
package domain
