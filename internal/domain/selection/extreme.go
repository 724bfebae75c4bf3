package selection

import "github.com/geoplex/stacmosaic/internal/domain"

// extremeStrategy keeps the highest (or lowest) value per pixel per
// band. Extremes can always be improved by a later item, so the
// strategy consumes every item the compositor offers.
type extremeStrategy struct {
	highest   bool
	composite *domain.Window
}

func (s *extremeStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.composite, w); err != nil {
		return err
	}
	if s.composite == nil {
		s.composite = domain.NewWindow(w.Width, w.Height, len(w.Bands))
		s.composite.BandNames = w.BandNames
	}
	for i, valid := range w.Mask {
		if !valid {
			continue
		}
		if !s.composite.Mask[i] {
			for b := range w.Bands {
				s.composite.Bands[b][i] = w.Bands[b][i]
			}
			s.composite.Mask[i] = true
			continue
		}
		for b := range w.Bands {
			v := w.Bands[b][i]
			cur := s.composite.Bands[b][i]
			if (s.highest && v > cur) || (!s.highest && v < cur) {
				s.composite.Bands[b][i] = v
			}
		}
	}
	return nil
}

func (s *extremeStrategy) Complete() bool { return false }

func (s *extremeStrategy) Data() (*domain.Window, bool) {
	if s.composite == nil || !s.composite.AnyValid() {
		return nil, false
	}
	return s.composite, true
}
