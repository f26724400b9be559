package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrEmptyLabel = errors.New("identity label must not be empty")
)
