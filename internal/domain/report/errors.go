package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrInvalidRange = errors.New("invalid date range")
)
