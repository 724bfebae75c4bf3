package chi

import (
	"image"
	"image/color"
	"image/png"
	"net/http"

	"github.com/geoplex/stacmosaic/internal/domain"
)

// writePNG encodes the window's first band as an 8-bit grayscale PNG
// with the mask as alpha. Richer encodings (multi-band, colormaps) are
// a caller concern outside this adapter.
func writePNG(w http.ResponseWriter, window *domain.Window) {
	img := image.NewNRGBA(image.Rect(0, 0, window.Width, window.Height))
	for i, valid := range window.Mask {
		if !valid {
			continue
		}
		v := window.Bands[0][i]
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		g := uint8(v)
		img.SetNRGBA(i%window.Width, i/window.Width, color.NRGBA{R: g, G: g, B: g, A: 255})
	}

	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, img)
}
