// Package codec ships the reference raster codec: assets fetched over
// HTTP and decoded as PNG, georeferenced by the owning item's bbox.
// It exists so the server binary works end to end; production
// deployments inject a codec for their raster format instead.
package codec

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/reader"
	"github.com/geoplex/stacmosaic/internal/tms"
)

// PNGCodec opens PNG assets over HTTP.
type PNGCodec struct {
	http *http.Client
}

var _ reader.Codec = (*PNGCodec)(nil)

// NewPNG creates the codec. A nil client falls back to the default.
func NewPNG(client *http.Client) *PNGCodec {
	if client == nil {
		client = http.DefaultClient
	}
	return &PNGCodec{http: client}
}

// Open fetches and decodes the asset. The returned source samples the
// decoded image via nearest neighbor; pixels outside the item bbox and
// fully transparent pixels are masked.
func (c *PNGCodec) Open(ctx context.Context, asset reader.ResolvedAsset) (reader.Source, error) {
	if asset.Item == nil || len(asset.Item.Bbox) < 4 {
		return nil, fmt.Errorf("asset %s: item bbox required for georeferencing", asset.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.Href, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", asset.Href, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", asset.Href, resp.StatusCode)
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", asset.Href, err)
	}

	bbox := asset.Item.Bbox
	return &pngSource{
		img: img,
		bounds: tms.Bounds{
			West: bbox[0], South: bbox[1], East: bbox[2], North: bbox[3],
		},
	}, nil
}

type pngSource struct {
	img    image.Image
	bounds tms.Bounds
}

func (s *pngSource) ReadWindow(_ context.Context, b tms.Bounds, width, height int) (*domain.Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", width, height)
	}
	w := domain.NewWindow(width, height, 1)
	for row := 0; row < height; row++ {
		lat := b.North - (float64(row)+0.5)/float64(height)*(b.North-b.South)
		for col := 0; col < width; col++ {
			lon := b.West + (float64(col)+0.5)/float64(width)*(b.East-b.West)
			v, ok := s.sample(lon, lat)
			i := row*width + col
			w.Bands[0][i] = v
			w.Mask[i] = ok
		}
	}
	return w, nil
}

func (s *pngSource) ReadPoint(_ context.Context, lon, lat float64) (domain.PointSample, error) {
	v, ok := s.sample(lon, lat)
	return domain.PointSample{Values: []float64{v}, Valid: ok}, nil
}

func (s *pngSource) Close() error { return nil }

// sample maps a geographic position onto the decoded image using the
// item bbox as the image extent and returns the 8-bit red channel.
func (s *pngSource) sample(lon, lat float64) (float64, bool) {
	if lon < s.bounds.West || lon > s.bounds.East || lat < s.bounds.South || lat > s.bounds.North {
		return 0, false
	}
	rect := s.img.Bounds()
	fx := (lon - s.bounds.West) / (s.bounds.East - s.bounds.West)
	fy := (s.bounds.North - lat) / (s.bounds.North - s.bounds.South)

	x := rect.Min.X + int(fx*float64(rect.Dx()))
	y := rect.Min.Y + int(fy*float64(rect.Dy()))
	if x >= rect.Max.X {
		x = rect.Max.X - 1
	}
	if y >= rect.Max.Y {
		y = rect.Max.Y - 1
	}

	r, _, _, a := s.img.At(x, y).RGBA()
	if a == 0 {
		return 0, false
	}
	return float64(r >> 8), true
}
