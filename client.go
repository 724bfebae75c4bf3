// Package stacmosaic assembles map tiles and point values dynamically
// from whatever items a remote spatio-temporal catalog reports as
// intersecting the request, instead of reading a static mosaic index.
// Every request re-derives its item set live, composites pixel data
// from the matched assets with a pixel-selection strategy, and returns
// full per-item provenance alongside partial-failure diagnostics.
package stacmosaic

import (
	"net/http"
	"time"

	"github.com/geoplex/stacmosaic/internal/mosaic"
	"github.com/geoplex/stacmosaic/internal/reader"
	"github.com/geoplex/stacmosaic/internal/stacapi"
)

// Client is the stacmosaic SDK entry point. It holds no per-catalog
// state: connection parameters flow into every call, so one client can
// serve multiple catalogs concurrently.
type Client struct {
	api    *stacapi.Client
	reader *reader.Reader
	comp   *mosaic.Compositor

	defaultLimit    int
	defaultMaxItems int
}

type clientConfig struct {
	httpClient      *http.Client
	alternateKey    string
	concurrency     int
	readTimeout     time.Duration
	cacheTTL        time.Duration
	cacheSize       int
	defaultLimit    int
	defaultMaxItems int
}

// Option configures a Client.
type Option func(*clientConfig)

// WithHTTPClient sets the HTTP client used for catalog and asset
// requests. Per-request timeouts still apply on top of it.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithAlternateHrefKey names the alternate asset href entry that, when
// present, overrides the primary href (e.g. signed or regional URLs).
func WithAlternateHrefKey(key string) Option {
	return func(cfg *clientConfig) { cfg.alternateKey = key }
}

// WithConcurrency bounds the per-request item read fan-out.
func WithConcurrency(n int) Option {
	return func(cfg *clientConfig) { cfg.concurrency = n }
}

// WithReadTimeout bounds one item's asset read. Expiry is recorded as
// that item's error, never a request failure.
func WithReadTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.readTimeout = d }
}

// WithCollectionCache sizes the collection-metadata cache. Item search
// results are never cached regardless of this setting.
func WithCollectionCache(ttl time.Duration, size int) Option {
	return func(cfg *clientConfig) {
		cfg.cacheTTL = ttl
		cfg.cacheSize = size
	}
}

// WithDefaults sets the page size and item cap applied when a request
// leaves them unset.
func WithDefaults(limit, maxItems int) Option {
	return func(cfg *clientConfig) {
		cfg.defaultLimit = limit
		cfg.defaultMaxItems = maxItems
	}
}

// New creates a stacmosaic Client around the given raster codec.
func New(codec Codec, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	api := stacapi.NewClient(stacapi.Options{
		HTTPClient:          cfg.httpClient,
		CollectionCacheSize: cfg.cacheSize,
		CollectionCacheTTL:  cfg.cacheTTL,
	})

	rdr := reader.New(codec, cfg.alternateKey)
	return &Client{
		api:             api,
		reader:          rdr,
		comp:            mosaic.New(rdr, cfg.concurrency, cfg.readTimeout),
		defaultLimit:    cfg.defaultLimit,
		defaultMaxItems: cfg.defaultMaxItems,
	}
}
