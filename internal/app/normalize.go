package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"ratings_dashboard/internal/domain"
)

// knownColumns maps lowercased header names onto the canonical column names.
var knownColumns = map[string]string{
	"brand":    domain.ColBrand,
	"date":     domain.ColDate,
	"rating":   domain.ColRating,
	"title":    domain.ColTitle,
	"review":   domain.ColReview,
	"mgmtflag": domain.ColMgmtFlag,
}

var requiredColumns = []string{domain.ColBrand, domain.ColDate, domain.ColRating}

func columnName(i int, h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if h == "" {
		return fmt.Sprintf("Unnamed: %d", i)
	}
	if c, ok := knownColumns[strings.ToLower(h)]; ok {
		return c
	}
	return h
}

// fileResult is the outcome of normalizing one table.
type fileResult struct {
	reviews []domain.Review
	columns []string
	outcome domain.FileOutcome
}

// candidate is a row after coercion; a nil date or rating failed to parse.
type candidate struct {
	brand  string
	date   *time.Time
	rating *float64
	fields map[string]string
}

func (c candidate) valid() bool { return c.date != nil && c.rating != nil }

func (c candidate) review(source string) domain.Review {
	return domain.Review{
		Brand:  c.brand,
		Date:   *c.date,
		Rating: *c.rating,
		Source: source,
		Fields: c.fields,
	}
}

// normalizeTable checks the structural precondition, coerces every row and
// drops rows whose date or rating did not parse.
func normalizeTable(t domain.Table) fileResult {
	out := fileResult{outcome: domain.FileOutcome{Path: t.Path}}

	names := make([]string, len(t.Header))
	pos := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		names[i] = columnName(i, h)
		if _, dup := pos[names[i]]; !dup {
			pos[names[i]] = i
			out.columns = append(out.columns, names[i])
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		out.columns = nil
		out.outcome.Status = domain.FileSkipped
		out.outcome.Reason = "missing columns: " + strings.Join(missing, ", ")
		return out
	}

	out.outcome.Status = domain.FileLoaded
	for _, row := range t.Rows {
		c := coerce(row, pos)
		if !c.valid() {
			out.outcome.Dropped++
			continue
		}
		out.reviews = append(out.reviews, c.review(t.Path))
	}
	out.outcome.Kept = len(out.reviews)
	return out
}

func coerce(row []string, pos map[string]int) candidate {
	fields := make(map[string]string, len(pos))
	for name, i := range pos {
		fields[name] = cell(row, i)
	}
	return candidate{
		brand:  fields[domain.ColBrand],
		date:   parseDate(fields[domain.ColDate]),
		rating: parseRating(fields[domain.ColRating]),
		fields: fields,
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseDate accepts any common textual date; values without a zone are taken as UTC.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// parseRating accepts finite decimal numbers only. Hex floats and digit
// separators, which strconv would take, are rejected.
func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
