// Package stacapi is the catalog API client: item search with
// cursor-based pagination, direct item lookup, and collection
// metadata. Connection parameters are injected on every call so one
// client can serve multiple catalogs without cross-talk; credentials
// are never stored.
package stacapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/geoplex/stacmosaic/internal/domain"
)

const (
	defaultCollectionCacheSize = 512
	defaultCollectionCacheTTL  = 5 * time.Minute

	maxErrorBodyBytes = 2048
)

// ConnectionParams identify one catalog for the duration of a call.
type ConnectionParams struct {
	BaseURL string
	Headers map[string]string
}

// Client talks to a catalog's search, item, and collection endpoints.
// Collection metadata is cached in-process (it feeds mosaic bounds and
// info); item search results are never cached.
type Client struct {
	http        *http.Client
	collections *expirable.LRU[string, *domain.Collection]
}

// Options configure a Client.
type Options struct {
	HTTPClient          *http.Client
	CollectionCacheSize int
	CollectionCacheTTL  time.Duration
}

// NewClient creates a catalog client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	size := opts.CollectionCacheSize
	if size <= 0 {
		size = defaultCollectionCacheSize
	}
	ttl := opts.CollectionCacheTTL
	if ttl <= 0 {
		ttl = defaultCollectionCacheTTL
	}
	return &Client{
		http:        httpClient,
		collections: expirable.NewLRU[string, *domain.Collection](size, nil, ttl),
	}
}

// GetItem fetches one item by id from the catalog's item endpoint.
func (c *Client) GetItem(ctx context.Context, conn ConnectionParams, collection, id string) (*domain.Item, error) {
	url := fmt.Sprintf("%s/collections/%s/items/%s", strings.TrimRight(conn.BaseURL, "/"), collection, id)

	var item domain.Item
	if err := c.getJSON(ctx, conn, url, &item); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrItemNotFound, collection, id)
		}
		return nil, err
	}
	if item.Collection == "" {
		item.Collection = collection
	}
	return &item, nil
}

// GetCollection fetches collection metadata, serving repeated lookups
// from the expiring cache.
func (c *Client) GetCollection(ctx context.Context, conn ConnectionParams, id string) (*domain.Collection, error) {
	key := conn.BaseURL + "\x00" + id
	if col, ok := c.collections.Get(key); ok {
		return col, nil
	}

	url := fmt.Sprintf("%s/collections/%s", strings.TrimRight(conn.BaseURL, "/"), id)
	var col domain.Collection
	if err := c.getJSON(ctx, conn, url, &col); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
		}
		return nil, err
	}

	c.collections.Add(key, &col)
	return &col, nil
}

func (c *Client) getJSON(ctx context.Context, conn ConnectionParams, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.doJSON(req, conn, url, out)
}

func (c *Client) postJSON(ctx context.Context, conn ConnectionParams, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, conn, url, out)
}

// doJSON executes one request with the connection's headers applied.
// Non-2xx responses and transport failures map to *domain.SearchError;
// the client never retries, retry policy is a caller concern.
func (c *Client) doJSON(req *http.Request, conn ConnectionParams, url string, out any) error {
	req.Header.Set("Accept", "application/json")
	for k, v := range conn.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.SearchError{URL: url, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &domain.SearchError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Detail:     strings.TrimSpace(string(detail)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.SearchError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Detail:     fmt.Sprintf("malformed response: %v", err),
		}
	}
	return nil
}

func notFound(err error) bool {
	var se *domain.SearchError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
