package chi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/geoplex/stacmosaic"
	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
)

type tileParams struct {
	tms           string
	z, x, y       int
	width, height int
}

func parseTilePath(r *http.Request) (tileParams, error) {
	p := tileParams{
		tms:    chi.URLParam(r, "tms"),
		width:  defaultTileSize,
		height: defaultTileSize,
	}

	var err error
	if p.z, err = pathInt(r, "z"); err != nil {
		return p, err
	}
	if p.x, err = pathInt(r, "x"); err != nil {
		return p, err
	}
	if p.y, err = pathInt(r, "y"); err != nil {
		return p, err
	}

	q := r.URL.Query()
	if w, err := intParam(q.Get("width")); err != nil {
		return p, err
	} else if w > 0 {
		p.width = w
	}
	if h, err := intParam(q.Get("height")); err != nil {
		return p, err
	} else if h > 0 {
		p.height = h
	}
	return p, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	v := chi.URLParam(r, name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidParameter, name, v)
	}
	return n, nil
}

// parseLonLat parses a "{lon},{lat}" path segment.
func parseLonLat(v string) (float64, float64, error) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: position must be lon,lat, got %q", domain.ErrInvalidParameter, v)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad longitude %q", domain.ErrInvalidParameter, parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad latitude %q", domain.ErrInvalidParameter, parts[1])
	}
	return lon, lat, nil
}

func parseSortBy(spec string) []stacmosaic.SortField {
	return query.ParseSortBy(spec)
}
