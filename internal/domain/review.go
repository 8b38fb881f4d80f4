package domain

import "time"

// Column names as they appear in the brand export files.
const (
	ColBrand    = "Brand"
	ColDate     = "Date"
	ColRating   = "Rating"
	ColTitle    = "Title"
	ColReview   = "Review"
	ColMgmtFlag = "MgmtFlag"

	// MgmtFlagYes marks a review for management attention.
	MgmtFlagYes = "Yes"
)

// Review is one normalized row. Date is always UTC.
// Fields holds every input column verbatim, keyed by header name.
type Review struct {
	Brand  string            `json:"brand"`
	Date   time.Time         `json:"date"`
	Rating float64           `json:"rating"`
	Source string            `json:"source"`
	Fields map[string]string `json:"fields"`
}

// Field returns a passthrough column value, or "" when the column was not present.
func (r Review) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

func (r Review) Title() string { return r.Field(ColTitle) }
func (r Review) Body() string { return r.Field(ColReview) }
func (r Review) MgmtFlag() string { return r.Field(ColMgmtFlag) }

// Flagged reports whether the review carries the management sentinel.
func (r Review) Flagged() bool { return r.MgmtFlag() == MgmtFlagYes }

// Table is a raw tabular file: a header row plus data rows padded to the header width.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}
