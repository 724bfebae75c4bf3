// Package mosaic composites tile windows and point samples from the
// items a catalog search matched. Reads fan out concurrently; merging
// is serialized in search-result order so output is deterministic and
// the earlier item always wins ties.
package mosaic

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/domain/selection"
	"github.com/geoplex/stacmosaic/internal/logger"
	"github.com/geoplex/stacmosaic/internal/metrics"
	"github.com/geoplex/stacmosaic/internal/tms"
)

const (
	// DefaultConcurrency bounds the per-request read fan-out.
	DefaultConcurrency = 4
	// DefaultReadTimeout bounds one item's read. Expiry is a per-item
	// error, never a request failure.
	DefaultReadTimeout = 30 * time.Second
)

// ItemReader reads one item's window or point sample.
type ItemReader interface {
	Window(ctx context.Context, item *domain.Item, sel query.Selection, b tms.Bounds, width, height int) (*domain.Window, []string, error)
	Point(ctx context.Context, item *domain.Item, sel query.Selection, lon, lat float64) (domain.PointSample, []string, error)
}

// Envelope is the result of one tile request: the composited window,
// per-item successes with the assets used, and per-item failures, both
// in search-result order.
type Envelope struct {
	Window *domain.Window
	Assets []domain.ItemOutcome
	Errors []domain.ItemError
}

// PointEnvelope is the point-query result: composited band values, a
// coverage flag, and the same provenance lists as Envelope.
type PointEnvelope struct {
	Values    []float64
	BandNames []string
	Valid     bool
	Assets    []domain.ItemOutcome
	Errors    []domain.ItemError
}

// Compositor runs the per-request fan-out/fan-in.
type Compositor struct {
	reader      ItemReader
	concurrency int
	readTimeout time.Duration
}

// New creates a compositor. Zero values fall back to the defaults.
func New(reader ItemReader, concurrency int, readTimeout time.Duration) *Compositor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Compositor{reader: reader, concurrency: concurrency, readTimeout: readTimeout}
}

// Tile composites the requested window from the item list.
// Terminal states: success (at least one item contributed valid
// pixels), ErrNoMatchingItems (empty list), or *EmptyMosaicError
// (non-empty list, nothing contributed).
func (c *Compositor) Tile(
	ctx context.Context, items []domain.Item, sel query.Selection, method selection.Method,
	b tms.Bounds, width, height int,
) (*Envelope, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	strat, err := selection.New(method)
	if err != nil {
		return nil, err
	}

	env, err := c.run(ctx, items, strat, func(ctx context.Context, item *domain.Item) (*domain.Window, []string, error) {
		return c.reader.Window(ctx, item, sel, b, width, height)
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Point composites band values at one position. Each read yields a
// scalar-per-band sample lifted into a 1x1 window so the tile state
// machine applies unchanged.
func (c *Compositor) Point(
	ctx context.Context, items []domain.Item, sel query.Selection, method selection.Method,
	lon, lat float64,
) (*PointEnvelope, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	strat, err := selection.New(method)
	if err != nil {
		return nil, err
	}

	env, err := c.run(ctx, items, strat, func(ctx context.Context, item *domain.Item) (*domain.Window, []string, error) {
		sample, assets, err := c.reader.Point(ctx, item, sel, lon, lat)
		if err != nil {
			return nil, nil, err
		}
		return sample.AsWindow(), assets, nil
	})
	if err != nil {
		return nil, err
	}

	sample := domain.SampleFromWindow(env.Window)
	return &PointEnvelope{
		Values:    sample.Values,
		BandNames: sample.BandNames,
		Valid:     sample.Valid,
		Assets:    env.Assets,
		Errors:    env.Errors,
	}, nil
}

// readResult carries one completed item read to the merge loop.
type readResult struct {
	index  int
	window *domain.Window
	assets []string
	err    error
}

type readFunc func(ctx context.Context, item *domain.Item) (*domain.Window, []string, error)

// run fans item reads out up to the concurrency limit and merges
// completed reads strictly in item order. As soon as the strategy is
// complete after merging index i, every task sequenced after i is
// cancelled; tasks at or before i are never cancelled since they may
// be needed to resolve ties.
func (c *Compositor) run(
	ctx context.Context, items []domain.Item, strat selection.Strategy, read readFunc,
) (*Envelope, error) {
	if len(items) == 0 {
		return nil, domain.ErrNoMatchingItems
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	// One cancellable context per item, created up front so the merge
	// loop can cancel later-sequenced tasks without racing dispatch.
	itemCtxs := make([]context.Context, len(items))
	itemCancels := make([]context.CancelFunc, len(items))
	for i := range items {
		itemCtxs[i], itemCancels[i] = context.WithCancel(runCtx)
	}
	defer func() {
		for _, cancel := range itemCancels {
			cancel()
		}
	}()

	results := make(chan readResult, len(items))
	go c.dispatch(itemCtxs, items, read, results)

	env := &Envelope{}
	pending := make(map[int]readResult, len(items))
	next := 0

merge:
	for next < len(items) {
		var res readResult
		select {
		case res = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		pending[res.index] = res

		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			item := &items[next]

			if res.err != nil {
				metrics.ItemReadFailed()
				env.Errors = append(env.Errors, domain.ItemError{
					ItemID:     item.ID,
					Collection: item.Collection,
					Err:        res.err,
				})
				next++
				continue
			}

			if err := strat.Feed(res.window); err != nil {
				metrics.ItemReadFailed()
				env.Errors = append(env.Errors, domain.ItemError{
					ItemID:     item.ID,
					Collection: item.Collection,
					Err:        err,
				})
				next++
				continue
			}

			metrics.ItemScanned()
			env.Assets = append(env.Assets, domain.ItemOutcome{
				ItemID:     item.ID,
				Collection: item.Collection,
				Assets:     res.assets,
			})
			next++

			if strat.Complete() {
				for j := next; j < len(items); j++ {
					itemCancels[j]()
				}
				if next < len(items) {
					metrics.EarlyExit()
					logger.FromContext(ctx).Debug("mosaic early exit",
						zap.Int("merged", next),
						zap.Int("skipped", len(items)-next),
					)
				}
				break merge
			}
		}
	}

	window, ok := strat.Data()
	if !ok {
		return nil, &domain.EmptyMosaicError{Errors: env.Errors}
	}
	env.Window = window
	return env, nil
}

// dispatch runs item reads with a bounded worker pool, preserving no
// order: completion order is irrelevant, the merge loop re-sequences.
func (c *Compositor) dispatch(
	itemCtxs []context.Context, items []domain.Item, read readFunc, results chan<- readResult,
) {
	sem := make(chan struct{}, c.concurrency)
	for i := range items {
		i := i
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()

			itemCtx := itemCtxs[i]
			if itemCtx.Err() != nil {
				results <- readResult{index: i, err: itemCtx.Err()}
				return
			}

			readCtx, cancel := context.WithTimeout(itemCtx, c.readTimeout)
			defer cancel()

			window, assets, err := read(readCtx, &items[i])
			if err != nil {
				results <- readResult{index: i, err: fmt.Errorf("read: %w", err)}
				return
			}
			results <- readResult{index: i, window: window, assets: assets}
		}()
	}
}
