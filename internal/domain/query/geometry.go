package query

import (
	"encoding/json"
	"fmt"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// IntersectsPolygon builds the GeoJSON polygon for a geographic bbox,
// for use as the intersects member of a search body. Coordinates are
// counter-clockwise starting at the lower-left corner.
func IntersectsPolygon(west, south, east, north float64) (json.RawMessage, error) {
	flat := []float64{
		west, south,
		east, south,
		east, north,
		west, north,
		west, south,
	}
	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	raw, err := geojson.Marshal(poly)
	if err != nil {
		return nil, fmt.Errorf("marshal bbox polygon: %w", err)
	}
	return raw, nil
}

// IntersectsPoint builds the GeoJSON point for a lon/lat pair.
func IntersectsPoint(lon, lat float64) (json.RawMessage, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat})
	raw, err := geojson.Marshal(pt)
	if err != nil {
		return nil, fmt.Errorf("marshal point: %w", err)
	}
	return raw, nil
}
