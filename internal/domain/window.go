package domain

import "fmt"

// Window is a fixed-size pixel window with one or more bands and a
// shared validity mask. Band data is row-major, len Width*Height.
// Mask[i] == true means pixel i holds valid data in every band.
type Window struct {
	Width, Height int
	Bands         [][]float64
	BandNames     []string
	Mask          []bool
}

// NewWindow allocates an all-masked window of the given shape.
func NewWindow(width, height, bands int) *Window {
	w := &Window{
		Width:  width,
		Height: height,
		Bands:  make([][]float64, bands),
		Mask:   make([]bool, width*height),
	}
	for b := range w.Bands {
		w.Bands[b] = make([]float64, width*height)
	}
	return w
}

// SameShape reports whether two windows have identical dimensions and
// band counts. Windows of different shape cannot be merged.
func (w *Window) SameShape(o *Window) bool {
	return w.Width == o.Width && w.Height == o.Height && len(w.Bands) == len(o.Bands)
}

// Validate checks internal consistency of the window buffers.
func (w *Window) Validate() error {
	n := w.Width * w.Height
	if len(w.Mask) != n {
		return fmt.Errorf("window mask length %d, want %d", len(w.Mask), n)
	}
	for b, band := range w.Bands {
		if len(band) != n {
			return fmt.Errorf("window band %d length %d, want %d", b, len(band), n)
		}
	}
	return nil
}

// AllValid reports whether every pixel of the window is unmasked.
func (w *Window) AllValid() bool {
	for _, ok := range w.Mask {
		if !ok {
			return false
		}
	}
	return true
}

// AnyValid reports whether at least one pixel of the window is unmasked.
func (w *Window) AnyValid() bool {
	for _, ok := range w.Mask {
		if ok {
			return true
		}
	}
	return false
}

// PointSample is the point-query analogue of a window: one value per
// band plus a coverage flag.
type PointSample struct {
	Values    []float64
	BandNames []string
	Valid     bool
}

// AsWindow lifts a point sample into a 1x1 window so that point
// queries share the window merge machinery.
func (p PointSample) AsWindow() *Window {
	w := NewWindow(1, 1, len(p.Values))
	for b, v := range p.Values {
		w.Bands[b][0] = v
	}
	w.BandNames = p.BandNames
	w.Mask[0] = p.Valid
	return w
}

// SampleFromWindow extracts the single pixel of a 1x1 window back into
// a point sample.
func SampleFromWindow(w *Window) PointSample {
	p := PointSample{
		Values:    make([]float64, len(w.Bands)),
		BandNames: w.BandNames,
		Valid:     len(w.Mask) == 1 && w.Mask[0],
	}
	for b := range w.Bands {
		p.Values[b] = w.Bands[b][0]
	}
	return p
}

// ItemOutcome records one item's successful contribution to a mosaic:
// which item it was and which assets were actually read.
type ItemOutcome struct {
	ItemID     string
	Collection string
	Assets     []string
}
