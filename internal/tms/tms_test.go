package tms

import (
	"errors"
	"math"
	"testing"

	"github.com/geoplex/stacmosaic/internal/domain"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGet(t *testing.T) {
	for _, id := range []string{"WebMercatorQuad", "WorldCRS84Quad"} {
		if _, err := Get(id); err != nil {
			t.Fatalf("Get(%q): %v", id, err)
		}
	}
	if _, err := Get("UTM31N"); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("unknown scheme: want ErrInvalidParameter, got %v", err)
	}
}

func TestWebMercatorZoomZero(t *testing.T) {
	b, err := WebMercatorQuad.TileBounds(0, 0, 0)
	if err != nil {
		t.Fatalf("TileBounds: %v", err)
	}
	if !almost(b.West, -180) || !almost(b.East, 180) {
		t.Fatalf("west/east: got %v/%v", b.West, b.East)
	}
	if !almost(b.North, webMercatorMaxLat) || !almost(b.South, -webMercatorMaxLat) {
		t.Fatalf("north/south: got %v/%v", b.North, b.South)
	}
}

func TestWebMercatorQuadrant(t *testing.T) {
	// Tile (1, 0) at zoom 1 is the north-east quadrant.
	b, err := WebMercatorQuad.TileBounds(1, 1, 0)
	if err != nil {
		t.Fatalf("TileBounds: %v", err)
	}
	if !almost(b.West, 0) || !almost(b.East, 180) {
		t.Fatalf("west/east: got %v/%v", b.West, b.East)
	}
	if !almost(b.South, 0) || !almost(b.North, webMercatorMaxLat) {
		t.Fatalf("south/north: got %v/%v", b.South, b.North)
	}
}

func TestCRS84TwoTilesAtZoomZero(t *testing.T) {
	west, err := WorldCRS84Quad.TileBounds(0, 0, 0)
	if err != nil {
		t.Fatalf("TileBounds: %v", err)
	}
	east, err := WorldCRS84Quad.TileBounds(0, 1, 0)
	if err != nil {
		t.Fatalf("TileBounds: %v", err)
	}
	if !almost(west.West, -180) || !almost(west.East, 0) {
		t.Fatalf("west hemisphere: got %v/%v", west.West, west.East)
	}
	if !almost(east.West, 0) || !almost(east.East, 180) {
		t.Fatalf("east hemisphere: got %v/%v", east.West, east.East)
	}
	if !almost(west.North, 90) || !almost(west.South, -90) {
		t.Fatalf("latitude span: got %v/%v", west.North, west.South)
	}
	if _, err := WorldCRS84Quad.TileBounds(0, 2, 0); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("column 2 does not exist at zoom 0, got %v", err)
	}
}

func TestTileOutsideMatrix(t *testing.T) {
	cases := []struct{ z, x, y int }{
		{1, 2, 0},
		{1, 0, 2},
		{1, -1, 0},
		{-1, 0, 0},
		{25, 0, 0},
	}
	for _, c := range cases {
		if _, err := WebMercatorQuad.TileBounds(c.z, c.x, c.y); !errors.Is(err, domain.ErrInvalidParameter) {
			t.Fatalf("(%d,%d,%d): want ErrInvalidParameter, got %v", c.z, c.x, c.y, err)
		}
	}
}

func TestWorldBounds(t *testing.T) {
	wm := WebMercatorQuad.WorldBounds()
	if !almost(wm.North, webMercatorMaxLat) {
		t.Fatalf("web mercator north: got %v", wm.North)
	}
	crs := WorldCRS84Quad.WorldBounds()
	if !almost(crs.North, 90) || !almost(crs.South, -90) {
		t.Fatalf("crs84 extent: got %v/%v", crs.North, crs.South)
	}
}

func TestZoomRange(t *testing.T) {
	for _, scheme := range []TileMatrixSet{WebMercatorQuad, WorldCRS84Quad} {
		if scheme.MinZoom() != 0 || scheme.MaxZoom() != 24 {
			t.Fatalf("%s: got zoom range %d-%d", scheme, scheme.MinZoom(), scheme.MaxZoom())
		}
	}
}
