// Package tms implements the tile matrix sets a tile request can be
// expressed in. Only the two common geographic-output schemes are
// supported; the set is closed.
package tms

import (
	"fmt"
	"math"

	"github.com/geoplex/stacmosaic/internal/domain"
)

// Bounds is a geographic (WGS84) bounding box.
type Bounds struct {
	West, South, East, North float64
}

// TileMatrixSet identifies a supported tiling scheme.
type TileMatrixSet string

// Supported tile matrix sets.
const (
	// WebMercatorQuad is the standard z/x/y Web Mercator grid.
	WebMercatorQuad TileMatrixSet = "WebMercatorQuad"
	// WorldCRS84Quad is the two-tiles-at-zoom-zero geographic grid.
	WorldCRS84Quad TileMatrixSet = "WorldCRS84Quad"
)

const (
	minZoom = 0
	maxZoom = 24

	webMercatorMaxLat = 85.051128779806604
)

// Get validates a tile matrix set identifier.
func Get(id string) (TileMatrixSet, error) {
	switch TileMatrixSet(id) {
	case WebMercatorQuad, WorldCRS84Quad:
		return TileMatrixSet(id), nil
	default:
		return "", fmt.Errorf("%w: unknown tile matrix set %q", domain.ErrInvalidParameter, id)
	}
}

// MinZoom returns the lowest zoom level of the scheme.
func (t TileMatrixSet) MinZoom() int { return minZoom }

// MaxZoom returns the highest zoom level of the scheme.
func (t TileMatrixSet) MaxZoom() int { return maxZoom }

// TileBounds returns the geographic bounds of tile (z, x, y).
func (t TileMatrixSet) TileBounds(z, x, y int) (Bounds, error) {
	if z < minZoom || z > maxZoom {
		return Bounds{}, fmt.Errorf("%w: zoom %d outside [%d, %d]", domain.ErrInvalidParameter, z, minZoom, maxZoom)
	}

	var cols, rows int
	switch t {
	case WebMercatorQuad:
		cols = 1 << uint(z)
		rows = cols
	case WorldCRS84Quad:
		cols = 2 << uint(z)
		rows = 1 << uint(z)
	default:
		return Bounds{}, fmt.Errorf("%w: unknown tile matrix set %q", domain.ErrInvalidParameter, string(t))
	}

	if x < 0 || x >= cols || y < 0 || y >= rows {
		return Bounds{}, fmt.Errorf(
			"%w: tile (%d, %d) outside %dx%d matrix at zoom %d",
			domain.ErrInvalidParameter, x, y, cols, rows, z,
		)
	}

	switch t {
	case WebMercatorQuad:
		n := float64(cols)
		return Bounds{
			West:  float64(x)/n*360 - 180,
			East:  float64(x+1)/n*360 - 180,
			North: mercatorLat(float64(y), n),
			South: mercatorLat(float64(y+1), n),
		}, nil
	default: // WorldCRS84Quad
		size := 180 / float64(rows)
		return Bounds{
			West:  -180 + float64(x)*size,
			East:  -180 + float64(x+1)*size,
			North: 90 - float64(y)*size,
			South: 90 - float64(y+1)*size,
		}, nil
	}
}

// mercatorLat converts a fractional tile row to latitude.
func mercatorLat(y, n float64) float64 {
	rad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return rad * 180 / math.Pi
}

// WorldBounds returns the full extent of the scheme.
func (t TileMatrixSet) WorldBounds() Bounds {
	if t == WebMercatorQuad {
		return Bounds{West: -180, South: -webMercatorMaxLat, East: 180, North: webMercatorMaxLat}
	}
	return Bounds{West: -180, South: -90, East: 180, North: 90}
}
