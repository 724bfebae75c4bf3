package selection

import (
	"math"
	"sort"

	"github.com/geoplex/stacmosaic/internal/domain"
)

// Accumulation strategies never complete early: the running aggregate
// can change with every additional item, so only the request's
// max-items cap bounds how many items are consumed.

// meanStrategy averages valid contributions per pixel per band.
type meanStrategy struct {
	shape  *domain.Window
	sums   [][]float64
	counts []int
}

func (s *meanStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.shape, w); err != nil {
		return err
	}
	if s.shape == nil {
		s.shape = w
		s.sums = make([][]float64, len(w.Bands))
		for b := range s.sums {
			s.sums[b] = make([]float64, w.Width*w.Height)
		}
		s.counts = make([]int, w.Width*w.Height)
	}
	for i, valid := range w.Mask {
		if !valid {
			continue
		}
		for b := range w.Bands {
			s.sums[b][i] += w.Bands[b][i]
		}
		s.counts[i]++
	}
	return nil
}

func (s *meanStrategy) Complete() bool { return false }

func (s *meanStrategy) Data() (*domain.Window, bool) {
	if s.shape == nil {
		return nil, false
	}
	out := domain.NewWindow(s.shape.Width, s.shape.Height, len(s.sums))
	out.BandNames = s.shape.BandNames
	any := false
	for i, n := range s.counts {
		if n == 0 {
			continue
		}
		for b := range s.sums {
			out.Bands[b][i] = s.sums[b][i] / float64(n)
		}
		out.Mask[i] = true
		any = true
	}
	return out, any
}

// medianStrategy keeps every valid contribution and picks the median
// per pixel per band. Memory grows with the item count; the request's
// max-items cap bounds it.
type medianStrategy struct {
	shape  *domain.Window
	values [][][]float64 // band -> pixel -> contributions
}

func (s *medianStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.shape, w); err != nil {
		return err
	}
	if s.shape == nil {
		s.shape = w
		s.values = make([][][]float64, len(w.Bands))
		for b := range s.values {
			s.values[b] = make([][]float64, w.Width*w.Height)
		}
	}
	for i, valid := range w.Mask {
		if !valid {
			continue
		}
		for b := range w.Bands {
			s.values[b][i] = append(s.values[b][i], w.Bands[b][i])
		}
	}
	return nil
}

func (s *medianStrategy) Complete() bool { return false }

func (s *medianStrategy) Data() (*domain.Window, bool) {
	if s.shape == nil || len(s.values) == 0 {
		return nil, false
	}
	out := domain.NewWindow(s.shape.Width, s.shape.Height, len(s.values))
	out.BandNames = s.shape.BandNames
	any := false
	for i := 0; i < s.shape.Width*s.shape.Height; i++ {
		if len(s.values[0][i]) == 0 {
			continue
		}
		for b := range s.values {
			out.Bands[b][i] = median(s.values[b][i])
		}
		out.Mask[i] = true
		any = true
	}
	return out, any
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdevStrategy computes the population standard deviation of valid
// contributions per pixel per band via running sums.
type stdevStrategy struct {
	shape  *domain.Window
	sums   [][]float64
	sqSums [][]float64
	counts []int
}

func (s *stdevStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.shape, w); err != nil {
		return err
	}
	if s.shape == nil {
		s.shape = w
		s.sums = make([][]float64, len(w.Bands))
		s.sqSums = make([][]float64, len(w.Bands))
		for b := range s.sums {
			s.sums[b] = make([]float64, w.Width*w.Height)
			s.sqSums[b] = make([]float64, w.Width*w.Height)
		}
		s.counts = make([]int, w.Width*w.Height)
	}
	for i, valid := range w.Mask {
		if !valid {
			continue
		}
		for b := range w.Bands {
			v := w.Bands[b][i]
			s.sums[b][i] += v
			s.sqSums[b][i] += v * v
		}
		s.counts[i]++
	}
	return nil
}

func (s *stdevStrategy) Complete() bool { return false }

func (s *stdevStrategy) Data() (*domain.Window, bool) {
	if s.shape == nil {
		return nil, false
	}
	out := domain.NewWindow(s.shape.Width, s.shape.Height, len(s.sums))
	out.BandNames = s.shape.BandNames
	any := false
	for i, n := range s.counts {
		if n == 0 {
			continue
		}
		for b := range s.sums {
			mean := s.sums[b][i] / float64(n)
			variance := s.sqSums[b][i]/float64(n) - mean*mean
			if variance < 0 {
				variance = 0
			}
			out.Bands[b][i] = math.Sqrt(variance)
		}
		out.Mask[i] = true
		any = true
	}
	return out, any
}

// countStrategy counts valid contributors per pixel in a single
// output band.
type countStrategy struct {
	shape  *domain.Window
	counts []int
}

func (s *countStrategy) Feed(w *domain.Window) error {
	if err := checkShape(s.shape, w); err != nil {
		return err
	}
	if s.shape == nil {
		s.shape = w
		s.counts = make([]int, w.Width*w.Height)
	}
	for i, valid := range w.Mask {
		if valid {
			s.counts[i]++
		}
	}
	return nil
}

func (s *countStrategy) Complete() bool { return false }

func (s *countStrategy) Data() (*domain.Window, bool) {
	if s.shape == nil {
		return nil, false
	}
	out := domain.NewWindow(s.shape.Width, s.shape.Height, 1)
	out.BandNames = []string{"count"}
	any := false
	for i, n := range s.counts {
		if n > 0 {
			any = true
		}
		out.Bands[0][i] = float64(n)
		out.Mask[i] = true
	}
	return out, any
}
