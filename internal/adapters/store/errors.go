package store

import "errors"

// Sentinel kinds for persistence failures. Adapters wrap their concrete
// errors with these so callers can errors.Is without knowing the backend.
var (
	ErrUnavailable = errors.New("store unavailable")
	ErrCorrupt     = errors.New("store data corrupt")
)
