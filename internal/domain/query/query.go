// Package query builds and validates catalog search queries. It is a
// pure transform: request parameters in, a well-formed search payload
// out, with strict validation at this boundary.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/geoplex/stacmosaic/internal/domain"
)

const (
	// DefaultLimit is the page size sent to the catalog when none is set.
	DefaultLimit = 10
	// DefaultMaxItems caps the total items considered per request when
	// none is set. MaxItems bounds network and compute cost regardless
	// of how many items the catalog reports.
	DefaultMaxItems = 100

	// FilterLangCQL2Text and FilterLangCQL2JSON are the recognized
	// filter languages.
	FilterLangCQL2Text = "cql2-text"
	FilterLangCQL2JSON = "cql2-json"
)

// SortDirection orders a sort field ascending or descending.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField is one element of a search sort specification.
type SortField struct {
	Field     string
	Direction SortDirection
}

// Search holds the parameters of one catalog item search.
type Search struct {
	Collections []string
	IDs         []string
	Bbox        []float64
	Intersects  json.RawMessage
	Datetime    string
	FilterExpr  string
	FilterLang  string
	SortBy      []SortField
	Limit       int
	MaxItems    int
}

// Normalize validates the search and fills defaults. A bare calendar
// date widens to exactly that one day: [dateT00:00:00Z, date+1T00:00:00Z),
// exclusive upper bound, so a date filter never drifts across days.
func (s *Search) Normalize() error {
	if s.Limit <= 0 {
		s.Limit = DefaultLimit
	}
	if s.MaxItems <= 0 {
		s.MaxItems = DefaultMaxItems
	}
	if s.Limit > s.MaxItems {
		s.Limit = s.MaxItems
	}

	if len(s.Bbox) != 0 && len(s.Bbox) != 4 && len(s.Bbox) != 6 {
		return fmt.Errorf("%w: bbox must have 4 or 6 elements, got %d", domain.ErrInvalidParameter, len(s.Bbox))
	}

	if s.FilterExpr != "" {
		switch s.FilterLang {
		case "":
			s.FilterLang = FilterLangCQL2Text
		case FilterLangCQL2Text, FilterLangCQL2JSON:
		default:
			return fmt.Errorf("%w: unknown filter language %q", domain.ErrInvalidParameter, s.FilterLang)
		}
	} else if s.FilterLang != "" {
		return fmt.Errorf("%w: filter-lang given without a filter expression", domain.ErrInvalidParameter)
	}

	for _, sf := range s.SortBy {
		if sf.Field == "" {
			return fmt.Errorf("%w: sort field must not be empty", domain.ErrInvalidParameter)
		}
		switch sf.Direction {
		case SortAsc, SortDesc:
		default:
			return fmt.Errorf("%w: sort direction must be asc or desc, got %q", domain.ErrInvalidParameter, sf.Direction)
		}
	}

	dt, err := normalizeDatetime(s.Datetime)
	if err != nil {
		return err
	}
	s.Datetime = dt

	return nil
}

// normalizeDatetime widens a bare date to a full-day range and passes
// ranges and full timestamps through unchanged.
func normalizeDatetime(dt string) (string, error) {
	if dt == "" || strings.Contains(dt, "/") {
		return dt, nil
	}
	if t, err := time.Parse("2006-01-02", dt); err == nil {
		start := t.UTC()
		end := start.AddDate(0, 0, 1)
		return start.Format("2006-01-02T15:04:05Z") + "/" + end.Format("2006-01-02T15:04:05Z"), nil
	}
	if _, err := time.Parse(time.RFC3339, dt); err == nil {
		return dt, nil
	}
	return "", fmt.Errorf("%w: cannot parse datetime %q", domain.ErrInvalidParameter, dt)
}

// Body returns the JSON payload for POST {base}/search. Only set
// members are emitted; the catalog's own defaults apply otherwise.
func (s Search) Body() map[string]any {
	body := map[string]any{
		"limit": s.Limit,
	}
	if len(s.Collections) > 0 {
		body["collections"] = s.Collections
	}
	if len(s.IDs) > 0 {
		body["ids"] = s.IDs
	}
	if len(s.Intersects) > 0 {
		body["intersects"] = json.RawMessage(s.Intersects)
	} else if len(s.Bbox) > 0 {
		body["bbox"] = s.Bbox
	}
	if s.Datetime != "" {
		body["datetime"] = s.Datetime
	}
	if s.FilterExpr != "" {
		body["filter-lang"] = s.FilterLang
		if s.FilterLang == FilterLangCQL2JSON {
			body["filter"] = json.RawMessage(s.FilterExpr)
		} else {
			body["filter"] = s.FilterExpr
		}
	}
	if len(s.SortBy) > 0 {
		sort := make([]map[string]string, len(s.SortBy))
		for i, sf := range s.SortBy {
			sort[i] = map[string]string{"field": sf.Field, "direction": string(sf.Direction)}
		}
		body["sortby"] = sort
	}
	return body
}

// ParseIDs splits a comma-separated id list, dropping empty entries.
func ParseIDs(ids string) []string {
	if ids == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ParseSortBy parses a comma-separated sort spec where a leading "-"
// means descending and a leading "+" (or nothing) means ascending.
func ParseSortBy(spec string) []SortField {
	if spec == "" {
		return nil
	}
	var out []SortField
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		dir := SortAsc
		switch f[0] {
		case '-':
			dir = SortDesc
			f = f[1:]
		case '+':
			f = f[1:]
		}
		if f != "" {
			out = append(out, SortField{Field: f, Direction: dir})
		}
	}
	return out
}
