package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"

	"ratings_dashboard/internal/app"
	"ratings_dashboard/internal/domain"
)

// Queries is the read side the dashboard needs; *app.QueryService satisfies it.
type Queries interface {
	Dataset(ctx context.Context) (domain.Dataset, error)
	Reload(ctx context.Context) (domain.Dataset, error)
	MonthlyRatings(ctx context.Context) (domain.MonthlySeries, error)
	Flagged(ctx context.Context, from, to *time.Time) (domain.FlaggedPage, error)
}

type Handlers struct{ Q Queries }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const (
	problemNoData      = "urn:ratings:no-data"
	problemUnavailable = "urn:ratings:feature-unavailable"
	problemRange       = "urn:ratings:invalid-range"
)

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/dataset", h.getDataset)
	s.mux.Get("/v1/ratings/monthly", h.getMonthly)
	s.mux.Get("/v1/reviews/flagged", h.listFlagged)
	s.mux.Post("/v1/reload", h.reload)
}

func writeProblem(w http.ResponseWriter, status int, typ, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: typ, Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyDataset):
		writeProblem(w, http.StatusNotFound, problemNoData, "No data", "No valid deduped CSV files found.")
	case errors.Is(err, domain.ErrFeatureUnavailable):
		writeProblem(w, http.StatusNotImplemented, problemUnavailable, "Feature unavailable", err.Error())
	case errors.Is(err, domain.ErrInvalidRange):
		writeProblem(w, http.StatusBadRequest, problemRange, "Invalid date range", err.Error())
	default:
		log.Error().Err(err).Msg("query failed")
		writeProblem(w, http.StatusInternalServerError, "about:blank", "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- response shapes ----

type datasetSummary struct {
	ID       string               `json:"id"`
	Key      string               `json:"key"`
	LoadedAt time.Time            `json:"loaded_at"`
	Rows     int                  `json:"rows"`
	Brands   []string             `json:"brands"`
	Columns  []string             `json:"columns"`
	Files    []domain.FileOutcome `json:"files"`
}

func toSummary(ds domain.Dataset) datasetSummary {
	files := ds.Files
	if files == nil {
		files = []domain.FileOutcome{}
	}
	columns := ds.Columns
	if columns == nil {
		columns = []string{}
	}
	return datasetSummary{
		ID:       ds.ID,
		Key:      ds.Key,
		LoadedAt: ds.LoadedAt,
		Rows:     len(ds.Reviews),
		Brands:   ds.Brands(),
		Columns:  columns,
		Files:    files,
	}
}

type seriesPoint struct {
	Month         string   `json:"month"`
	Brand         string   `json:"brand"`
	AverageRating *float64 `json:"average_rating"`
}

type monthlyResponse struct {
	Months []string      `json:"months"`
	Brands []string      `json:"brands"`
	Points []seriesPoint `json:"points"`
}

func toMonthly(s domain.MonthlySeries) monthlyResponse {
	out := monthlyResponse{
		Months: make([]string, 0, len(s.Months)),
		Brands: s.Brands,
		Points: make([]seriesPoint, 0, len(s.Points)),
	}
	for _, m := range s.Months {
		out.Months = append(out.Months, m.Format(time.DateOnly))
	}
	for _, p := range s.Points {
		out.Points = append(out.Points, seriesPoint{
			Month:         p.Month.Format(time.DateOnly),
			Brand:         p.Brand,
			AverageRating: p.AverageRating,
		})
	}
	return out
}

type flaggedItem struct {
	Date    string  `json:"date"`
	Brand   string  `json:"brand"`
	Rating  float64 `json:"rating"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Source  string  `json:"source"`
}

type flaggedResponse struct {
	Min   string        `json:"min,omitempty"`
	Max   string        `json:"max,omitempty"`
	From  string        `json:"from,omitempty"`
	To    string        `json:"to,omitempty"`
	Count int           `json:"count"`
	Items []flaggedItem `json:"items"`
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func toFlagged(p domain.FlaggedPage) flaggedResponse {
	out := flaggedResponse{
		Min:   dateOrEmpty(p.Min),
		Max:   dateOrEmpty(p.Max),
		From:  dateOrEmpty(p.From),
		To:    dateOrEmpty(p.To),
		Count: len(p.Items),
		Items: make([]flaggedItem, 0, len(p.Items)),
	}
	for _, r := range p.Items {
		out.Items = append(out.Items, flaggedItem{
			Date:    r.Date.Format(time.DateOnly),
			Brand:   r.Brand,
			Rating:  r.Rating,
			Title:   app.DisplayTitle(r),
			Excerpt: app.Excerpt(r.Body(), app.ExcerptRunes),
			Source:  r.Source,
		})
	}
	return out
}

// ---- handlers ----

func (h *Handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Q.Dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	render.JSON(w, r, toSummary(ds))
}

func (h *Handlers) reload(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Q.Reload(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("dataset", ds.ID).Int("rows", len(ds.Reviews)).Msg("dataset reloaded on request")
	render.JSON(w, r, toSummary(ds))
}

func (h *Handlers) getMonthly(w http.ResponseWriter, r *http.Request) {
	s, err := h.Q.MonthlyRatings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(toMonthly(s))
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write monthly body")
	}
}

func (h *Handlers) listFlagged(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, fmt.Errorf("from: %w", err))
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, fmt.Errorf("to: %w", err))
		return
	}

	page, err := h.Q.Flagged(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	render.JSON(w, r, toFlagged(page))
}

// parseDay reads an optional YYYY-MM-DD query value.
func parseDay(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", domain.ErrInvalidRange, v)
	}
	return &t, nil
}
