// Package reader resolves catalog item assets into raster sources and
// reads tile windows and point samples from them. It is a thin
// adapter: the native bounds, resolution, and nodata semantics of an
// asset belong to the injected codec, never reinterpreted here.
package reader

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/tms"
)

// ResolvedAsset binds one openable href to its (item, asset) pair.
type ResolvedAsset struct {
	Name string
	Href string
	Item *domain.Item
}

// Source is a scoped raster handle for one asset. It must be released
// on every exit path; a Source is read at most once per request.
type Source interface {
	// ReadWindow reads the window covering the geographic bounds,
	// resampled to width x height pixels.
	ReadWindow(ctx context.Context, b tms.Bounds, width, height int) (*domain.Window, error)
	// ReadPoint samples band values at a geographic position.
	ReadPoint(ctx context.Context, lon, lat float64) (domain.PointSample, error)
	Close() error
}

// Codec opens raster sources. Decoding is an external capability; any
// implementation satisfying this contract can be injected.
type Codec interface {
	Open(ctx context.Context, asset ResolvedAsset) (Source, error)
}

// Reader resolves and reads the assets a selection names on one item.
type Reader struct {
	codec        Codec
	alternateKey string
}

// New creates a reader. alternateKey, when non-empty, names the
// alternate href entry that overrides an asset's primary href.
func New(codec Codec, alternateKey string) *Reader {
	return &Reader{codec: codec, alternateKey: alternateKey}
}

// Resolve maps the selection's asset names onto the item's asset
// hrefs, applying the alternate-href override. The returned order
// follows the selection, so band order is stable across items.
func (r *Reader) Resolve(item *domain.Item, sel query.Selection) ([]ResolvedAsset, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	names := sel.AssetNames()
	resolved := make([]ResolvedAsset, 0, len(names))
	for _, name := range names {
		asset, ok := item.Assets[name]
		if !ok {
			return nil, fmt.Errorf("item %s has no asset %q (available: %v)", item.ID, name, assetNames(item))
		}
		resolved = append(resolved, ResolvedAsset{
			Name: name,
			Href: asset.ResolvedHref(r.alternateKey),
			Item: item,
		})
	}
	return resolved, nil
}

// Window reads the selection's assets for one item and band-stacks
// them in selection order. Assets are opened and read concurrently;
// every opened source is closed whether the read succeeds or not.
// The combined mask marks a pixel valid only when every asset does.
func (r *Reader) Window(
	ctx context.Context, item *domain.Item, sel query.Selection,
	b tms.Bounds, width, height int,
) (*domain.Window, []string, error) {
	resolved, err := r.Resolve(item, sel)
	if err != nil {
		return nil, nil, err
	}

	windows := make([]*domain.Window, len(resolved))
	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range resolved {
		i, asset := i, asset
		g.Go(func() error {
			w, err := r.readOne(gctx, asset, func(src Source) (*domain.Window, error) {
				return src.ReadWindow(gctx, b, width, height)
			})
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset.Name, err)
			}
			windows[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	stacked, err := stack(resolved, windows, width, height)
	if err != nil {
		return nil, nil, err
	}
	return stacked, names(resolved), nil
}

// Point samples the selection's assets at one position, concatenating
// per-asset values in selection order. Coverage requires every asset
// to report a valid sample.
func (r *Reader) Point(
	ctx context.Context, item *domain.Item, sel query.Selection,
	lon, lat float64,
) (domain.PointSample, []string, error) {
	resolved, err := r.Resolve(item, sel)
	if err != nil {
		return domain.PointSample{}, nil, err
	}

	samples := make([]domain.PointSample, len(resolved))
	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range resolved {
		i, asset := i, asset
		g.Go(func() error {
			src, err := r.codec.Open(gctx, asset)
			if err != nil {
				return fmt.Errorf("asset %s: open: %w", asset.Name, err)
			}
			defer func() { _ = src.Close() }()

			s, err := src.ReadPoint(gctx, lon, lat)
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset.Name, err)
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.PointSample{}, nil, err
	}

	out := domain.PointSample{Valid: true}
	for i, s := range samples {
		out.Values = append(out.Values, s.Values...)
		for b := range s.Values {
			out.BandNames = append(out.BandNames, bandName(resolved[i].Name, s.BandNames, b))
		}
		if !s.Valid {
			out.Valid = false
		}
	}
	return out, names(resolved), nil
}

// readOne opens a source, runs the read, and closes the source on
// every path.
func (r *Reader) readOne(
	ctx context.Context, asset ResolvedAsset,
	read func(Source) (*domain.Window, error),
) (*domain.Window, error) {
	src, err := r.codec.Open(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = src.Close() }()
	return read(src)
}

// stack concatenates per-asset windows into one multi-band window.
func stack(resolved []ResolvedAsset, windows []*domain.Window, width, height int) (*domain.Window, error) {
	out := &domain.Window{Width: width, Height: height}
	for i, w := range windows {
		if w.Width != width || w.Height != height {
			return nil, fmt.Errorf(
				"asset %s: window %dx%d, want %dx%d",
				resolved[i].Name, w.Width, w.Height, width, height,
			)
		}
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("asset %s: %w", resolved[i].Name, err)
		}
		out.Bands = append(out.Bands, w.Bands...)
		for b := range w.Bands {
			out.BandNames = append(out.BandNames, bandName(resolved[i].Name, w.BandNames, b))
		}
		if out.Mask == nil {
			out.Mask = make([]bool, width*height)
			copy(out.Mask, w.Mask)
			continue
		}
		for p, valid := range w.Mask {
			out.Mask[p] = out.Mask[p] && valid
		}
	}
	return out, nil
}

func bandName(asset string, bandNames []string, b int) string {
	if b < len(bandNames) && bandNames[b] != "" {
		return asset + "_" + bandNames[b]
	}
	return fmt.Sprintf("%s_b%d", asset, b+1)
}

func names(resolved []ResolvedAsset) []string {
	out := make([]string, len(resolved))
	for i, a := range resolved {
		out[i] = a.Name
	}
	return out
}

func assetNames(item *domain.Item) []string {
	out := make([]string, 0, len(item.Assets))
	for name := range item.Assets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
