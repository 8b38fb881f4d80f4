package app

import (
	"fmt"
	"sort"
	"time"

	"ratings_dashboard/internal/domain"
)

const (
	NoTitle      = "No Title"
	ExcerptRunes = 1000
)

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FlaggedReviews returns reviews marked for management whose date falls on a day in
// [from, to]. Nil bounds default to the first and last flagged day. When no file
// carried the flag column the result is domain.ErrFeatureUnavailable, which is
// different from a page with zero items.
func FlaggedReviews(ds domain.Dataset, from, to *time.Time) (domain.FlaggedPage, error) {
	if !ds.HasColumn(domain.ColMgmtFlag) {
		return domain.FlaggedPage{}, fmt.Errorf("%s column not found: %w", domain.ColMgmtFlag, domain.ErrFeatureUnavailable)
	}

	if from != nil && to != nil && dayStart(*from).After(dayStart(*to)) {
		return domain.FlaggedPage{}, invalidRange(dayStart(*from), dayStart(*to))
	}

	var flagged []domain.Review
	for _, r := range ds.Reviews {
		if r.Flagged() {
			flagged = append(flagged, r)
		}
	}
	page := domain.FlaggedPage{Items: []domain.Review{}}
	if len(flagged) == 0 {
		return page, nil
	}
	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].Date.Before(flagged[j].Date) })

	page.Min = dayStart(flagged[0].Date)
	page.Max = dayStart(flagged[len(flagged)-1].Date)
	page.From, page.To = page.Min, page.Max
	if from != nil {
		page.From = dayStart(*from)
	}
	if to != nil {
		page.To = dayStart(*to)
	}
	if page.From.After(page.To) {
		return domain.FlaggedPage{}, invalidRange(page.From, page.To)
	}

	end := page.To.AddDate(0, 0, 1)
	for _, r := range flagged {
		if !r.Date.Before(page.From) && r.Date.Before(end) {
			page.Items = append(page.Items, r)
		}
	}
	return page, nil
}

func invalidRange(from, to time.Time) error {
	return fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidRange,
		from.Format(time.DateOnly), to.Format(time.DateOnly))
}

// DisplayTitle is the review title, or NoTitle when the export left it blank.
func DisplayTitle(r domain.Review) string {
	if t := r.Title(); t != "" {
		return t
	}
	return NoTitle
}

// Excerpt cuts s to at most n runes.
func Excerpt(s string, n int) string {
	if n < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
