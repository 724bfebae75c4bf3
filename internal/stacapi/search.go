package stacapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/logger"
	"github.com/geoplex/stacmosaic/internal/metrics"
)

// itemCollection is one page of search results.
type itemCollection struct {
	Features []domain.Item `json:"features"`
	Links    []apiLink     `json:"links"`
}

// apiLink is a catalog hypermedia link. Pagination next links may
// carry a method, a replacement or merge body, and extra headers.
type apiLink struct {
	Rel    string         `json:"rel"`
	Href   string         `json:"href"`
	Method string         `json:"method,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
	Merge  bool           `json:"merge,omitempty"`
}

// Search executes a normalized query against POST {base}/search and
// follows next links until the catalog runs out of pages or the
// accumulated count reaches the query's MaxItems cap, truncating
// mid-page if needed. Items come back exactly in catalog order; an
// empty result is not an error.
func (c *Client) Search(ctx context.Context, conn ConnectionParams, q *query.Search) ([]domain.Item, error) {
	start := time.Now()

	searchURL := strings.TrimRight(conn.BaseURL, "/") + "/search"
	body := q.Body()

	var (
		items []domain.Item
		pages int
	)

	url := searchURL
	method := http.MethodPost

	for {
		var page itemCollection
		var err error
		if method == http.MethodPost {
			err = c.postJSON(ctx, conn, url, body, &page)
		} else {
			err = c.getJSON(ctx, conn, url, &page)
		}
		if err != nil {
			return nil, err
		}
		pages++

		// An empty page ends the walk even if the catalog still offers
		// a next link; otherwise a catalog emitting featureless pages
		// forever would never let the MaxItems cap trigger.
		if len(page.Features) == 0 {
			break
		}

		for i := range page.Features {
			items = append(items, page.Features[i])
			if len(items) >= q.MaxItems {
				c.observeSearch(ctx, start, pages, len(items), true)
				return items, nil
			}
		}

		next, ok := nextLink(page.Links)
		if !ok {
			break
		}

		url = next.Href
		method = strings.ToUpper(next.Method)
		if method == "" {
			method = http.MethodGet
		}
		if method == http.MethodPost {
			switch {
			case next.Body != nil && next.Merge:
				body = mergeBody(body, next.Body)
			case next.Body != nil:
				body = next.Body
			}
		}
	}

	c.observeSearch(ctx, start, pages, len(items), false)
	return items, nil
}

func (c *Client) observeSearch(ctx context.Context, start time.Time, pages, count int, capped bool) {
	metrics.ObserveSearch(time.Since(start), pages)
	logger.FromContext(ctx).Debug("catalog search done",
		zap.Int("pages", pages),
		zap.Int("items", count),
		zap.Bool("max_items_reached", capped),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func nextLink(links []apiLink) (apiLink, bool) {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return l, true
		}
	}
	return apiLink{}, false
}

// mergeBody overlays the next link's body members on the original
// request body, per the catalog pagination contract.
func mergeBody(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
