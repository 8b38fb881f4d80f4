package domain

import "errors"

var (
	// ErrEmptyDataset is returned when aggregating a dataset with no rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrFeatureUnavailable is returned when an optional column the feature depends on is missing from every file.
	ErrFeatureUnavailable = errors.New("feature unavailable")
	// ErrInvalidRange is returned for malformed or inverted date ranges.
	ErrInvalidRange = errors.New("invalid date range")
)
