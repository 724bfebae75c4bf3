package stacapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
)

func newSearch(t *testing.T, maxItems int) *query.Search {
	t.Helper()
	q := &query.Search{Collections: []string{"sentinel-2"}, MaxItems: maxItems}
	if err := q.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return q
}

func itemsPage(ids []string, links []apiLink) itemCollection {
	page := itemCollection{Links: links}
	for _, id := range ids {
		page.Features = append(page.Features, domain.Item{ID: id, Collection: "sentinel-2"})
	}
	return page
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestSearch_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["limit"] != float64(query.DefaultLimit) {
			t.Fatalf("limit not sent, body %v", body)
		}
		writeJSON(t, w, itemsPage([]string{"a", "b"}, nil))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 100))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("want [a b] in catalog order, got %v", items)
	}
}

func TestSearch_FollowsPostNextLinkWithMerge(t *testing.T) {
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch n {
		case 1:
			writeJSON(t, w, itemsPage([]string{"a"}, []apiLink{{
				Rel:    "next",
				Href:   srv.URL + "/search",
				Method: "POST",
				Body:   map[string]any{"token": "page-2"},
				Merge:  true,
			}}))
		case 2:
			if body["token"] != "page-2" {
				t.Fatalf("merged token missing, body %v", body)
			}
			if _, ok := body["collections"]; !ok {
				t.Fatalf("merge must keep the original body, got %v", body)
			}
			writeJSON(t, w, itemsPage([]string{"b"}, nil))
		default:
			t.Fatalf("unexpected call %d", n)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 100))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("want [a b], got %v", items)
	}
}

func TestSearch_GetNextLink(t *testing.T) {
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			writeJSON(t, w, itemsPage([]string{"a"}, []apiLink{{
				Rel:  "next",
				Href: srv.URL + "/search?token=p2",
			}}))
		default:
			if r.Method != http.MethodGet {
				t.Fatalf("link without method must be followed with GET, got %s", r.Method)
			}
			if r.URL.Query().Get("token") != "p2" {
				t.Fatalf("token not carried: %s", r.URL.String())
			}
			writeJSON(t, w, itemsPage([]string{"b"}, nil))
		}
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 100))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 items, got %d", len(items))
	}
}

func TestSearch_MaxItemsTruncatesMidPage(t *testing.T) {
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			t.Fatal("must stop paginating once max items is reached")
		}
		writeJSON(t, w, itemsPage([]string{"a", "b", "c", "d"}, []apiLink{{
			Rel: "next", Href: srv.URL + "/search", Method: "POST",
		}}))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 3))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 3 || items[2].ID != "c" {
		t.Fatalf("want first 3 items of the page, got %v", items)
	}
}

func TestSearch_EmptyPageStopsPagination(t *testing.T) {
	// A catalog that keeps handing out next links on featureless pages
	// must not be walked forever: the item count never grows, so only
	// stopping on the empty page bounds the cost.
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, itemsPage(nil, []apiLink{{
			Rel: "next", Href: srv.URL + "/search", Method: "POST",
		}}))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 5))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("want no items, got %v", items)
	}
	if calls.Load() != 1 {
		t.Fatalf("an empty page must end pagination, got %d calls", calls.Load())
	}
}

func TestSearch_ZeroItemsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, itemsPage(nil, nil))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	items, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 100))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("want no items, got %v", items)
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	_, err := c.Search(context.Background(), ConnectionParams{BaseURL: srv.URL}, newSearch(t, 100))
	if !errors.Is(err, domain.ErrSearch) {
		t.Fatalf("want ErrSearch, got %v", err)
	}
	var se *domain.SearchError
	if !errors.As(err, &se) {
		t.Fatalf("want *SearchError, got %T", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d", se.StatusCode)
	}
	if se.Detail != "catalog exploded" {
		t.Fatalf("detail: got %q", se.Detail)
	}
}

func TestSearch_ConnectionHeadersForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sesame" {
			t.Fatalf("authorization not forwarded: %q", r.Header.Get("Authorization"))
		}
		writeJSON(t, w, itemsPage(nil, nil))
	}))
	defer srv.Close()

	c := NewClient(Options{})
	conn := ConnectionParams{BaseURL: srv.URL, Headers: map[string]string{"Authorization": "Bearer sesame"}}
	if _, err := c.Search(context.Background(), conn, newSearch(t, 100)); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestGetItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/sentinel-2/items/scene-1":
			writeJSON(t, w, domain.Item{ID: "scene-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{})
	conn := ConnectionParams{BaseURL: srv.URL}

	item, err := c.GetItem(context.Background(), conn, "sentinel-2", "scene-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.ID != "scene-1" {
		t.Fatalf("id: got %q", item.ID)
	}
	if item.Collection != "sentinel-2" {
		t.Fatalf("collection must be filled from the path, got %q", item.Collection)
	}

	_, err = c.GetItem(context.Background(), conn, "sentinel-2", "missing")
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

func TestGetCollection_Cached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/collections/sentinel-2" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"id":"sentinel-2","extent":{"spatial":{"bbox":[[-10,35,30,70]]}}}`)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	conn := ConnectionParams{BaseURL: srv.URL}

	for i := 0; i < 3; i++ {
		col, err := c.GetCollection(context.Background(), conn, "sentinel-2")
		if err != nil {
			t.Fatalf("get collection: %v", err)
		}
		if col.ID != "sentinel-2" {
			t.Fatalf("id: got %q", col.ID)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("collection must be served from cache after the first fetch, got %d calls", calls.Load())
	}

	_, err := c.GetCollection(context.Background(), conn, "nope")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("want ErrCollectionNotFound, got %v", err)
	}
}
