package selection

import "github.com/geoplex/stacmosaic/internal/domain"

// firstStrategy keeps the first valid contributor per pixel. It is the
// only strategy that can complete early: once every pixel has a valid
// contributor there is nothing left to fill.
type firstStrategy struct {
	composite *domain.Window
	remaining int
}

func (s *firstStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.composite, w); err != nil {
		return err
	}
	if s.composite == nil {
		s.composite = domain.NewWindow(w.Width, w.Height, len(w.Bands))
		s.composite.BandNames = w.BandNames
		s.remaining = w.Width * w.Height
	}
	for i, valid := range w.Mask {
		if !valid || s.composite.Mask[i] {
			continue
		}
		for b := range w.Bands {
			s.composite.Bands[b][i] = w.Bands[b][i]
		}
		s.composite.Mask[i] = true
		s.remaining--
	}
	return nil
}

func (s *firstStrategy) Complete() bool {
	return s.composite != nil && s.remaining == 0
}

func (s *firstStrategy) Data() (*domain.Window, bool) {
	if s.composite == nil || !s.composite.AnyValid() {
		return nil, false
	}
	return s.composite, true
}
