// Package selection implements the closed set of pixel-selection
// strategies used to merge per-item windows into one mosaic output.
// Each strategy pairs a merge rule with a completion predicate; the
// compositor feeds windows strictly in search-result order, so when
// two items are equally preferred the earlier one wins.
package selection

import (
	"fmt"

	"github.com/geoplex/stacmosaic/internal/domain"
)

// Method names a pixel-selection strategy. The set is closed: new
// strategies are added here, never via dynamic lookup.
type Method string

// Recognized pixel-selection methods.
const (
	First   Method = "first"
	Highest Method = "highest"
	Lowest  Method = "lowest"
	Mean    Method = "mean"
	Median  Method = "median"
	Stdev   Method = "stdev"
	Count   Method = "count"
)

// Strategy accumulates per-item windows into a running composite.
// Feed is never called concurrently; the compositor serializes merges.
type Strategy interface {
	// Feed merges one item's window into the composite, respecting the
	// per-pixel mask. The first window fixes the expected shape; later
	// windows of a different shape are rejected.
	Feed(w *domain.Window) error
	// Complete reports that no further items need be consulted.
	Complete() bool
	// Data returns the composited window, or false when no fed window
	// contributed a single valid pixel.
	Data() (*domain.Window, bool)
}

// New returns a fresh strategy for the method.
func New(m Method) (Strategy, error) {
	switch m {
	case First, "":
		return &firstStrategy{}, nil
	case Highest:
		return &extremeStrategy{highest: true}, nil
	case Lowest:
		return &extremeStrategy{}, nil
	case Mean:
		return &meanStrategy{}, nil
	case Median:
		return &medianStrategy{}, nil
	case Stdev:
		return &stdevStrategy{}, nil
	case Count:
		return &countStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown pixel selection %q", domain.ErrInvalidParameter, m)
	}
}

// checkShape validates a fed window against the composite, or adopts
// its shape when the composite does not exist yet.
func checkShape(composite, w *domain.Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if composite != nil && !composite.SameShape(w) {
		return fmt.Errorf(
			"window shape %dx%dx%d does not match composite %dx%dx%d",
			len(w.Bands), w.Width, w.Height,
			len(composite.Bands), composite.Width, composite.Height,
		)
	}
	return nil
}
