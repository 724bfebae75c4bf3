package codec

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/reader"
	"github.com/geoplex/stacmosaic/internal/tms"
)

// encodePNG renders a 2x2 image: top-left 10, top-right 20,
// bottom-left 30, bottom-right transparent.
func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 20, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 30, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	data := encodePNG(t)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scene.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
}

// The item covers lon [0, 2], lat [0, 2], one degree per pixel.
func resolvedAsset(href string) reader.ResolvedAsset {
	return reader.ResolvedAsset{
		Name: "red",
		Href: href,
		Item: &domain.Item{ID: "scene-1", Bbox: []float64{0, 0, 2, 2}},
	}
}

func openSource(t *testing.T, srv *httptest.Server) reader.Source {
	t.Helper()
	src, err := NewPNG(srv.Client()).Open(context.Background(), resolvedAsset(srv.URL+"/scene.png"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return src
}

func TestReadWindow(t *testing.T) {
	srv := pngServer(t)
	defer srv.Close()
	src := openSource(t, srv)
	defer func() { _ = src.Close() }()

	w, err := src.ReadWindow(context.Background(), tms.Bounds{West: 0, South: 0, East: 2, North: 2}, 2, 2)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	// Row 0 is the north edge, matching image row 0.
	if w.Bands[0][0] != 10 || w.Bands[0][1] != 20 {
		t.Fatalf("top row: got [%v %v]", w.Bands[0][0], w.Bands[0][1])
	}
	if w.Bands[0][2] != 30 {
		t.Fatalf("bottom-left: got %v", w.Bands[0][2])
	}
	if !w.Mask[0] || !w.Mask[1] || !w.Mask[2] {
		t.Fatalf("opaque pixels must be valid, mask %v", w.Mask)
	}
	if w.Mask[3] {
		t.Fatal("transparent pixel must be masked")
	}
}

func TestReadWindow_OutsideBboxMasked(t *testing.T) {
	srv := pngServer(t)
	defer srv.Close()
	src := openSource(t, srv)
	defer func() { _ = src.Close() }()

	// Window straddles the western item edge; the west half lies
	// outside the bbox.
	w, err := src.ReadWindow(context.Background(), tms.Bounds{West: -2, South: 1, East: 2, North: 2}, 4, 1)
	if err != nil {
		t.Fatalf("read window: %v", err)
	}
	if w.Mask[0] || w.Mask[1] {
		t.Fatalf("pixels outside the bbox must be masked, mask %v", w.Mask)
	}
	if !w.Mask[2] || !w.Mask[3] {
		t.Fatalf("pixels inside the bbox must be valid, mask %v", w.Mask)
	}
}

func TestReadPoint(t *testing.T) {
	srv := pngServer(t)
	defer srv.Close()
	src := openSource(t, srv)
	defer func() { _ = src.Close() }()

	s, err := src.ReadPoint(context.Background(), 0.5, 1.5)
	if err != nil {
		t.Fatalf("read point: %v", err)
	}
	if !s.Valid || s.Values[0] != 10 {
		t.Fatalf("top-left sample: got %+v", s)
	}

	s, err = src.ReadPoint(context.Background(), 5, 5)
	if err != nil {
		t.Fatalf("read point: %v", err)
	}
	if s.Valid {
		t.Fatal("sample outside the bbox must be invalid")
	}
}

func TestOpen_RequiresBbox(t *testing.T) {
	asset := reader.ResolvedAsset{Name: "red", Href: "https://x/scene.png", Item: &domain.Item{ID: "scene-1"}}
	if _, err := NewPNG(nil).Open(context.Background(), asset); err == nil {
		t.Fatal("an item without bbox cannot be georeferenced")
	}
}

func TestOpen_HTTPFailure(t *testing.T) {
	srv := pngServer(t)
	defer srv.Close()

	_, err := NewPNG(srv.Client()).Open(context.Background(), resolvedAsset(srv.URL+"/missing.png"))
	if err == nil {
		t.Fatal("404 must fail the open")
	}
}

func TestOpen_NotPNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	_, err := NewPNG(srv.Client()).Open(context.Background(), resolvedAsset(srv.URL+"/scene.png"))
	if err == nil {
		t.Fatal("garbage body must fail the decode")
	}
}
