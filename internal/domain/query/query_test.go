package query

import (
	"errors"
	"testing"

	"github.com/geoplex/stacmosaic/internal/domain"
)

func TestNormalize_DateWidensToFullDay(t *testing.T) {
	q := &Search{Datetime: "2023-01-01"}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2023-01-01T00:00:00Z/2023-01-02T00:00:00Z"
	if q.Datetime != want {
		t.Fatalf("want %q, got %q", want, q.Datetime)
	}
}

func TestNormalize_DateWidening_MonthBoundary(t *testing.T) {
	q := &Search{Datetime: "2023-02-28"}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2023-02-28T00:00:00Z/2023-03-01T00:00:00Z"
	if q.Datetime != want {
		t.Fatalf("want %q, got %q", want, q.Datetime)
	}
}

func TestNormalize_RangePassesThrough(t *testing.T) {
	in := "2023-01-01T00:00:00Z/2023-06-01T00:00:00Z"
	q := &Search{Datetime: in}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Datetime != in {
		t.Fatalf("range was rewritten: %q", q.Datetime)
	}
}

func TestNormalize_TimestampPassesThrough(t *testing.T) {
	in := "2023-01-01T12:30:00Z"
	q := &Search{Datetime: in}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Datetime != in {
		t.Fatalf("timestamp was rewritten: %q", q.Datetime)
	}
}

func TestNormalize_BadDatetime(t *testing.T) {
	q := &Search{Datetime: "yesterday"}
	err := q.Normalize()
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("want ErrInvalidParameter, got %v", err)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	q := &Search{}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != DefaultLimit {
		t.Fatalf("want limit %d, got %d", DefaultLimit, q.Limit)
	}
	if q.MaxItems != DefaultMaxItems {
		t.Fatalf("want max items %d, got %d", DefaultMaxItems, q.MaxItems)
	}
}

func TestNormalize_LimitCappedByMaxItems(t *testing.T) {
	q := &Search{Limit: 50, MaxItems: 5}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != 5 {
		t.Fatalf("want limit capped to 5, got %d", q.Limit)
	}
}

func TestNormalize_UnknownFilterLang(t *testing.T) {
	q := &Search{FilterExpr: "eo:cloud_cover < 10", FilterLang: "sql"}
	if !errors.Is(q.Normalize(), domain.ErrInvalidParameter) {
		t.Fatal("want ErrInvalidParameter for unknown filter language")
	}
}

func TestNormalize_FilterLangDefaultsToText(t *testing.T) {
	q := &Search{FilterExpr: "eo:cloud_cover < 10"}
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.FilterLang != FilterLangCQL2Text {
		t.Fatalf("want %q, got %q", FilterLangCQL2Text, q.FilterLang)
	}
}

func TestNormalize_FilterLangWithoutExpression(t *testing.T) {
	q := &Search{FilterLang: FilterLangCQL2Text}
	if !errors.Is(q.Normalize(), domain.ErrInvalidParameter) {
		t.Fatal("want ErrInvalidParameter for filter-lang without filter")
	}
}

func TestNormalize_BadBbox(t *testing.T) {
	q := &Search{Bbox: []float64{1, 2, 3}}
	if !errors.Is(q.Normalize(), domain.ErrInvalidParameter) {
		t.Fatal("want ErrInvalidParameter for 3-element bbox")
	}
}

func TestNormalize_BadSortDirection(t *testing.T) {
	q := &Search{SortBy: []SortField{{Field: "datetime", Direction: "sideways"}}}
	if !errors.Is(q.Normalize(), domain.ErrInvalidParameter) {
		t.Fatal("want ErrInvalidParameter for bad sort direction")
	}
}

func TestBody_OmitsUnset(t *testing.T) {
	q := &Search{Limit: 10, MaxItems: 100}
	body := q.Body()
	if _, ok := body["datetime"]; ok {
		t.Fatal("empty datetime must not be emitted")
	}
	if _, ok := body["collections"]; ok {
		t.Fatal("empty collections must not be emitted")
	}
	if body["limit"] != 10 {
		t.Fatalf("want limit 10, got %v", body["limit"])
	}
}

func TestBody_IntersectsWinsOverBbox(t *testing.T) {
	q := &Search{
		Bbox:       []float64{0, 0, 1, 1},
		Intersects: []byte(`{"type":"Point","coordinates":[0,0]}`),
		Limit:      10,
	}
	body := q.Body()
	if _, ok := body["bbox"]; ok {
		t.Fatal("bbox must be dropped when intersects is set")
	}
	if _, ok := body["intersects"]; !ok {
		t.Fatal("intersects missing from body")
	}
}

func TestBody_SortBy(t *testing.T) {
	q := &Search{
		Limit:  10,
		SortBy: []SortField{{Field: "datetime", Direction: SortDesc}},
	}
	body := q.Body()
	sort, ok := body["sortby"].([]map[string]string)
	if !ok || len(sort) != 1 {
		t.Fatalf("bad sortby: %v", body["sortby"])
	}
	if sort[0]["field"] != "datetime" || sort[0]["direction"] != "desc" {
		t.Fatalf("bad sortby entry: %v", sort[0])
	}
}

func TestParseIDs(t *testing.T) {
	got := ParseIDs("a, b,,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("want [a b c], got %v", got)
	}
	if ParseIDs("") != nil {
		t.Fatal("empty input must yield nil")
	}
}

func TestParseSortBy(t *testing.T) {
	got := ParseSortBy("-datetime,+id,cloud")
	want := []SortField{
		{Field: "datetime", Direction: SortDesc},
		{Field: "id", Direction: SortAsc},
		{Field: "cloud", Direction: SortAsc},
	}
	if len(got) != len(want) {
		t.Fatalf("want %d fields, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}
