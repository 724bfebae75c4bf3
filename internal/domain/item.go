// Package domain holds the core types of the search-backed mosaic:
// catalog items, pixel windows, and the error taxonomy shared by the
// stacapi client, the reader, and the compositor.
package domain

import "encoding/json"

// Item is one catalog entry: a geolocated, timestamped dataset with
// named raster assets. Items are produced fresh per request by the
// search client and never mutated afterwards.
type Item struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	Bbox       []float64        `json:"bbox,omitempty"`
	Geometry   json.RawMessage  `json:"geometry,omitempty"`
	Properties map[string]any   `json:"properties,omitempty"`
	Assets     map[string]Asset `json:"assets"`
}

// Asset is one named raster resource attached to an item.
type Asset struct {
	Href      string                    `json:"href"`
	Type      string                    `json:"type,omitempty"`
	Title     string                    `json:"title,omitempty"`
	Roles     []string                  `json:"roles,omitempty"`
	Alternate map[string]AlternateAsset `json:"alternate,omitempty"`
}

// AlternateAsset is a secondary href entry on an asset (e.g. a signed
// or regional URL), selected instead of the primary href when the
// configured alternate key matches.
type AlternateAsset struct {
	Href string `json:"href"`
}

// ResolvedHref returns the asset href, preferring the alternate entry
// named by key when it exists. An empty key always yields the primary.
func (a Asset) ResolvedHref(key string) string {
	if key != "" {
		if alt, ok := a.Alternate[key]; ok && alt.Href != "" {
			return alt.Href
		}
	}
	return a.Href
}

// Collection is the subset of collection metadata the mosaic needs:
// spatial extent for bounds and the renders passthrough field.
type Collection struct {
	ID      string                     `json:"id"`
	Title   string                     `json:"title,omitempty"`
	Extent  Extent                     `json:"extent"`
	Renders map[string]json.RawMessage `json:"renders,omitempty"`
}

// Extent holds a collection's spatial extent.
type Extent struct {
	Spatial SpatialExtent `json:"spatial"`
}

// SpatialExtent holds the bounding boxes of a spatial extent. The
// first bbox is the overall one per the catalog specification.
type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

// OverallBbox returns the collection's overall bbox, or nil when the
// extent is absent or empty.
func (c Collection) OverallBbox() []float64 {
	if len(c.Extent.Spatial.Bbox) == 0 {
		return nil
	}
	return c.Extent.Spatial.Bbox[0]
}
