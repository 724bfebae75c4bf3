package stacmosaic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/tms"
)

// MosaicBuilder is a fluent builder for search-backed tile and point
// requests against one catalog.
type MosaicBuilder struct {
	client *Client
	conn   ConnectionParams

	collections []string
	ids         []string
	datetime    string
	filterExpr  string
	filterLang  string
	sortBy      []SortField
	limit       int
	maxItems    int

	assets     []string
	expression string
	method     Method
}

// Mosaic starts a search-backed request against the catalog described
// by conn.
func (c *Client) Mosaic(conn ConnectionParams) *MosaicBuilder {
	return &MosaicBuilder{
		client:   c,
		conn:     conn,
		limit:    c.defaultLimit,
		maxItems: c.defaultMaxItems,
	}
}

// Collection restricts the search to one collection.
func (b *MosaicBuilder) Collection(id string) *MosaicBuilder {
	b.collections = append(b.collections, id)
	return b
}

// IDs restricts the search to an item-id allow-list.
func (b *MosaicBuilder) IDs(ids ...string) *MosaicBuilder {
	b.ids = append(b.ids, ids...)
	return b
}

// Datetime sets the temporal filter. A bare date (YYYY-MM-DD) widens
// to exactly that calendar day.
func (b *MosaicBuilder) Datetime(dt string) *MosaicBuilder {
	b.datetime = dt
	return b
}

// Filter sets a filter expression in the given language (cql2-text or
// cql2-json; empty lang defaults to cql2-text).
func (b *MosaicBuilder) Filter(lang, expr string) *MosaicBuilder {
	b.filterLang = lang
	b.filterExpr = expr
	return b
}

// SortBy overrides the catalog's ranking order. Without it, items are
// composited exactly in the order the catalog returned them.
func (b *MosaicBuilder) SortBy(fields ...SortField) *MosaicBuilder {
	b.sortBy = append(b.sortBy, fields...)
	return b
}

// Limit sets the search page size.
func (b *MosaicBuilder) Limit(n int) *MosaicBuilder {
	b.limit = n
	return b
}

// MaxItems caps the total items considered, bounding request cost.
func (b *MosaicBuilder) MaxItems(n int) *MosaicBuilder {
	b.maxItems = n
	return b
}

// Assets names the assets to read from each item.
func (b *MosaicBuilder) Assets(names ...string) *MosaicBuilder {
	b.assets = append(b.assets, names...)
	return b
}

// Expression sets a band-math expression; the assets it references are
// read. At least one of Assets or Expression is required.
func (b *MosaicBuilder) Expression(expr string) *MosaicBuilder {
	b.expression = expr
	return b
}

// PixelSelection sets the merge strategy. Defaults to first-valid.
func (b *MosaicBuilder) PixelSelection(m Method) *MosaicBuilder {
	b.method = m
	return b
}

// Tile composites the (z, x, y) tile of the tile matrix set at
// width x height pixels.
func (b *MosaicBuilder) Tile(ctx context.Context, tmsID string, z, x, y, width, height int) (*TileResult, error) {
	scheme, err := tms.Get(tmsID)
	if err != nil {
		return nil, err
	}
	bounds, err := scheme.TileBounds(z, x, y)
	if err != nil {
		return nil, err
	}

	sel := query.Selection{Assets: b.assets, Expression: b.expression}
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	intersects, err := query.IntersectsPolygon(bounds.West, bounds.South, bounds.East, bounds.North)
	if err != nil {
		return nil, err
	}

	items, err := b.search(ctx, intersects)
	if err != nil {
		return nil, err
	}

	return b.client.comp.Tile(ctx, items, sel, b.method, bounds, width, height)
}

// Point composites band values at a geographic position.
func (b *MosaicBuilder) Point(ctx context.Context, lon, lat float64) (*PointResult, error) {
	sel := query.Selection{Assets: b.assets, Expression: b.expression}
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	intersects, err := query.IntersectsPoint(lon, lat)
	if err != nil {
		return nil, err
	}

	items, err := b.search(ctx, intersects)
	if err != nil {
		return nil, err
	}

	return b.client.comp.Point(ctx, items, sel, b.method, lon, lat)
}

func (b *MosaicBuilder) search(ctx context.Context, intersects json.RawMessage) ([]Item, error) {
	q := &query.Search{
		Collections: b.collections,
		IDs:         b.ids,
		Intersects:  intersects,
		Datetime:    b.datetime,
		FilterExpr:  b.filterExpr,
		FilterLang:  b.filterLang,
		SortBy:      b.sortBy,
		Limit:       b.limit,
		MaxItems:    b.maxItems,
	}
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	return b.client.api.Search(ctx, b.conn, q)
}

// MosaicInfo describes a mosaic's geographic extent and the zoom range
// tiles can be requested at.
type MosaicInfo struct {
	Bounds  []float64                  `json:"bounds"`
	MinZoom int                        `json:"minzoom"`
	MaxZoom int                        `json:"maxzoom"`
	CRS     string                     `json:"crs"`
	Renders map[string]json.RawMessage `json:"renders,omitempty"`
}

// crs84URI is the geographic CRS the mosaic reports bounds in.
const crs84URI = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

// Info returns the mosaic's bounds and zoom range. With exactly one
// collection the bounds come from its spatial extent (cached
// collection metadata); otherwise the whole world is assumed. Both
// supported tiling schemes share one zoom range.
func (b *MosaicBuilder) Info(ctx context.Context) (*MosaicInfo, error) {
	info := &MosaicInfo{
		Bounds:  []float64{-180, -90, 180, 90},
		MinZoom: tms.WebMercatorQuad.MinZoom(),
		MaxZoom: tms.WebMercatorQuad.MaxZoom(),
		CRS:     crs84URI,
	}
	if len(b.collections) != 1 {
		return info, nil
	}

	col, err := b.client.api.GetCollection(ctx, b.conn, b.collections[0])
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", b.collections[0], err)
	}
	if bbox := col.OverallBbox(); len(bbox) >= 4 {
		info.Bounds = bbox
	}
	info.Renders = col.Renders
	return info, nil
}
