package stacmosaic

import (
	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/domain/selection"
	"github.com/geoplex/stacmosaic/internal/mosaic"
	"github.com/geoplex/stacmosaic/internal/reader"
	"github.com/geoplex/stacmosaic/internal/stacapi"
	"github.com/geoplex/stacmosaic/internal/tms"
)

// Aliases exposing the SDK surface. The implementations live in
// internal packages; these names are the public contract.
type (
	// ConnectionParams identify one catalog for the duration of a call:
	// base URL plus optional headers (e.g. an authorization token).
	// They are injected per request and never stored by the client.
	ConnectionParams = stacapi.ConnectionParams

	// Item is one catalog item descriptor.
	Item = domain.Item
	// Asset is one named raster resource on an item.
	Asset = domain.Asset

	// Window is a composited pixel window with bands and mask.
	Window = domain.Window
	// PointSample is one point-query value set.
	PointSample = domain.PointSample
	// ItemOutcome records a successful per-item contribution.
	ItemOutcome = domain.ItemOutcome
	// ItemError records an absorbed per-item failure.
	ItemError = domain.ItemError

	// TileResult is a composited tile plus per-item provenance.
	TileResult = mosaic.Envelope
	// PointResult is a composited point value set plus provenance.
	PointResult = mosaic.PointEnvelope

	// Method selects the pixel-selection strategy.
	Method = selection.Method
	// SortField is one element of a search sort specification.
	SortField = query.SortField
	// SortDirection orders a sort field.
	SortDirection = query.SortDirection

	// Codec opens raster sources; implementations are injected.
	Codec = reader.Codec
	// Source is a scoped raster handle returned by a Codec.
	Source = reader.Source
	// ResolvedAsset binds an openable href to its (item, asset) pair.
	ResolvedAsset = reader.ResolvedAsset

	// Bounds is a geographic bounding box.
	Bounds = tms.Bounds
	// TileMatrixSet identifies a supported tiling scheme.
	TileMatrixSet = tms.TileMatrixSet
)

// Pixel-selection methods.
const (
	First   = selection.First
	Highest = selection.Highest
	Lowest  = selection.Lowest
	Mean    = selection.Mean
	Median  = selection.Median
	Stdev   = selection.Stdev
	Count   = selection.Count
)

// Sort directions.
const (
	SortAsc  = query.SortAsc
	SortDesc = query.SortDesc
)

// Tile matrix sets.
const (
	WebMercatorQuad = tms.WebMercatorQuad
	WorldCRS84Quad  = tms.WorldCRS84Quad
)

// Error taxonomy. Per-item read failures are reported inside results,
// never as request errors; only these escape.
var (
	ErrInvalidParameter = domain.ErrInvalidParameter
	ErrSearch           = domain.ErrSearch
	ErrItemNotFound     = domain.ErrItemNotFound
	ErrNoMatchingItems  = domain.ErrNoMatchingItems
	ErrEmptyMosaic      = domain.ErrEmptyMosaic
)
