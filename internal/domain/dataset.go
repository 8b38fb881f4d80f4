package domain

import (
	"sort"
	"time"
)

type FileStatus string

const (
	FileLoaded  FileStatus = "loaded"
	FileSkipped FileStatus = "skipped"
)

// FileOutcome records what happened to one input file during a load.
type FileOutcome struct {
	Path    string     `json:"path"`
	Status  FileStatus `json:"status"`
	Reason  string     `json:"reason,omitempty"`
	Kept    int        `json:"kept"`
	Dropped int        `json:"dropped"`
}

// Dataset is the unified set of valid reviews across all qualifying files.
// Columns is the union of headers of qualifying files, in first-seen order.
type Dataset struct {
	ID       string        `json:"id"`
	Key      string        `json:"key"`
	LoadedAt time.Time     `json:"loaded_at"`
	Reviews  []Review      `json:"reviews"`
	Columns  []string      `json:"columns"`
	Files    []FileOutcome `json:"files"`
}

// Empty reports whether the dataset has no usable rows.
func (d Dataset) Empty() bool { return len(d.Reviews) == 0 }

// HasColumn reports whether any qualifying file carried the column.
func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Brands returns the distinct brand values, sorted.
func (d Dataset) Brands() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Reviews {
		seen[r.Brand] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// MonthlyAverage is the mean rating of one brand over one calendar month.
type MonthlyAverage struct {
	Brand   string    `json:"brand"`
	Month   time.Time `json:"month"`
	Average float64   `json:"average"`
	Count   int       `json:"count"`
}

// MonthlyAggregate is sorted by brand, then month.
type MonthlyAggregate struct {
	Rows []MonthlyAverage
}

// SeriesPoint is one long-form row of the dense monthly series.
// AverageRating is nil for months before the brand's first observation.
type SeriesPoint struct {
	Month         time.Time `json:"month"`
	Brand         string    `json:"brand"`
	AverageRating *float64  `json:"average_rating"`
}

// MonthlySeries is brand-major: brands sorted, months ascending within each brand.
type MonthlySeries struct {
	Months []time.Time   `json:"months"`
	Brands []string      `json:"brands"`
	Points []SeriesPoint `json:"points"`
}

// FlaggedPage is the result of browsing management-flagged reviews.
type FlaggedPage struct {
	// Min and Max bound the dates of all flagged reviews; zero when there are none.
	Min   time.Time `json:"min"`
	Max   time.Time `json:"max"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Items []Review  `json:"items"`
}
