package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time of day")
)
