// Package stac talks to the swisstopo STAC catalog. It wraps item search for
// a region, flattens the returned items into tile records ([NormalizeItems])
// and reduces multi-version tile tables to their most recent entries
// ([Latest]). Transport errors surface to the caller untouched apart from
// wrapping; there is no retry at this layer.
package stac

import "errors"

// BaseURL is the swisstopo STAC API root.
const BaseURL = "https://data.geo.admin.ch/api/stac/v0.9"

// ClientCRS names the reference system of the GeoJSON geometries exchanged
// with the API (WGS84, longitude/latitude axis order).
const ClientCRS = "OGC:CRS84"

// Collections served by the catalog that this module consumes.
const (
	// SwissALTI3DCollection is the terrain model (DEM without vegetation and
	// construction), published as 0.5 m and 2 m grids.
	SwissALTI3DCollection = "ch.swisstopo.swissalti3d"
	// SwissImage10Collection is the 0.1 m orthophoto mosaic.
	SwissImage10Collection = "ch.swisstopo.swissimage-dop10"
	// SwissSurface3DCollection is the classified lidar point cloud.
	SwissSurface3DCollection = "ch.swisstopo.swisssurface3d"
	// SwissSurface3DRasterCollection is the surface model (DSM including
	// vegetation and construction) derived from the point cloud.
	SwissSurface3DRasterCollection = "ch.swisstopo.swisssurface3d-raster"
)

// Published nodata values for collections whose rasters do not always carry
// a nodata tag of their own.
const (
	SwissALTI3DNoData  = -9999.0
	SwissImage10NoData = 0.0
)

// ErrMissingItemID reports a search result without the mandatory id field.
var ErrMissingItemID = errors.New("stac: item without id")

// ErrCollectionNotFound reports a collection id the catalog does not serve.
var ErrCollectionNotFound = errors.New("stac: collection not found")
