// Package chi is the thin HTTP adapter around the mosaic core: it
// maps paths and query strings to typed parameters, encodes windows
// as PNG and point results as JSON, and translates the core's error
// taxonomy to status codes. No mosaic logic lives here.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/geoplex/stacmosaic"
	"github.com/geoplex/stacmosaic/internal/domain"
	"github.com/geoplex/stacmosaic/internal/domain/query"
	"github.com/geoplex/stacmosaic/internal/logger"
)

const defaultTileSize = 256

// Server exposes the mosaic endpoints for one configured catalog.
type Server struct {
	client  *stacmosaic.Client
	stacURL string
	logger  *zap.Logger
}

// NewServer creates the HTTP adapter.
func NewServer(client *stacmosaic.Client, stacURL string, log *zap.Logger) *Server {
	return &Server{client: client, stacURL: stacURL, logger: log}
}

// Routes mounts the mosaic endpoints on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/collections/{collectionID}/tiles/{tms}/{z}/{x}/{y}", s.handleTile)
	r.Get("/collections/{collectionID}/point/{lonlat}", s.handlePoint)
	r.Get("/collections/{collectionID}/items/{itemID}/tiles/{tms}/{z}/{x}/{y}", s.handleItemTile)
	r.Get("/collections/{collectionID}/info", s.handleInfo)
}

// conn builds the catalog connection for one request. An upstream
// authorization header, when supplied, is forwarded verbatim and
// never stored.
func (s *Server) conn(r *http.Request) stacmosaic.ConnectionParams {
	conn := stacmosaic.ConnectionParams{BaseURL: s.stacURL}
	if auth := r.Header.Get("X-Upstream-Authorization"); auth != "" {
		conn.Headers = map[string]string{"Authorization": auth}
	}
	return conn
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	ctx := logger.ContextWithLogger(r.Context(), s.logger)

	tile, err := parseTilePath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	b, err := s.mosaicFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := b.Tile(ctx, tile.tms, tile.z, tile.x, tile.y, tile.width, tile.height)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("X-Assets", joinAssets(res.Assets))
	writePNG(w, res.Window)
}

func (s *Server) handleItemTile(w http.ResponseWriter, r *http.Request) {
	ctx := logger.ContextWithLogger(r.Context(), s.logger)

	tile, err := parseTilePath(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()
	b := s.client.Item(s.conn(r), chi.URLParam(r, "collectionID"), chi.URLParam(r, "itemID")).
		Assets(splitParam(q.Get("assets"))...).
		Expression(q.Get("expression"))

	res, err := b.Tile(ctx, tile.tms, tile.z, tile.x, tile.y, tile.width, tile.height)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("X-Assets", joinAssets(res.Assets))
	writePNG(w, res.Window)
}

func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	ctx := logger.ContextWithLogger(r.Context(), s.logger)

	lon, lat, err := parseLonLat(chi.URLParam(r, "lonlat"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	b, err := s.mosaicFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := b.Point(ctx, lon, lat)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pointResponse{
		Values:    res.Values,
		BandNames: res.BandNames,
		Valid:     res.Valid,
		Assets:    outcomes(res.Assets),
		Errors:    itemErrors(res.Errors),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := logger.ContextWithLogger(r.Context(), s.logger)

	info, err := s.client.Mosaic(s.conn(r)).
		Collection(chi.URLParam(r, "collectionID")).
		Info(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// mosaicFromQuery builds the search-backed request from query params.
func (s *Server) mosaicFromQuery(r *http.Request) (*stacmosaic.MosaicBuilder, error) {
	q := r.URL.Query()

	b := s.client.Mosaic(s.conn(r)).
		Collection(chi.URLParam(r, "collectionID")).
		Assets(splitParam(q.Get("assets"))...).
		Expression(q.Get("expression")).
		Datetime(q.Get("datetime")).
		PixelSelection(stacmosaic.Method(q.Get("pixel-selection")))

	if ids := query.ParseIDs(q.Get("ids")); len(ids) > 0 {
		b = b.IDs(ids...)
	}
	if expr := q.Get("filter"); expr != "" {
		b = b.Filter(q.Get("filter-lang"), expr)
	}
	if spec := q.Get("sortby"); spec != "" {
		b = b.SortBy(parseSortBy(spec)...)
	}

	if limit, err := intParam(q.Get("limit")); err != nil {
		return nil, err
	} else if limit > 0 {
		b = b.Limit(limit)
	}
	if maxItems, err := intParam(q.Get("max-items")); err != nil {
		return nil, err
	} else if maxItems > 0 {
		b = b.MaxItems(maxItems)
	}

	return b, nil
}

// writeError maps the core error taxonomy to status codes. Per-item
// failures never reach here; they ride inside successful responses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrNoMatchingItems),
		errors.Is(err, domain.ErrEmptyMosaic):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSearch):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type errorResponse struct {
	Error string `json:"error"`
}

type outcomeResponse struct {
	Item       string   `json:"item"`
	Collection string   `json:"collection"`
	Assets     []string `json:"assets"`
}

type itemErrorResponse struct {
	Item       string `json:"item"`
	Collection string `json:"collection"`
	Error      string `json:"error"`
}

type pointResponse struct {
	Values    []float64           `json:"values"`
	BandNames []string            `json:"band_names,omitempty"`
	Valid     bool                `json:"valid"`
	Assets    []outcomeResponse   `json:"assets"`
	Errors    []itemErrorResponse `json:"errors,omitempty"`
}

func outcomes(in []stacmosaic.ItemOutcome) []outcomeResponse {
	out := make([]outcomeResponse, len(in))
	for i, o := range in {
		out[i] = outcomeResponse{Item: o.ItemID, Collection: o.Collection, Assets: o.Assets}
	}
	return out
}

func itemErrors(in []stacmosaic.ItemError) []itemErrorResponse {
	out := make([]itemErrorResponse, len(in))
	for i, e := range in {
		out[i] = itemErrorResponse{Item: e.ItemID, Collection: e.Collection, Error: e.Err.Error()}
	}
	return out
}

func joinAssets(in []stacmosaic.ItemOutcome) string {
	parts := make([]string, len(in))
	for i, o := range in {
		parts[i] = o.Collection + "/" + o.ItemID
	}
	return strings.Join(parts, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidParameter, err)
	}
	return n, nil
}
