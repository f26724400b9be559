package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

func errMissingField(field string) error {
	return fmt.Errorf("%w: missing %s", ErrBadRequest, field)
}

func errInvalidField(field, hint string) error {
	return fmt.Errorf("%w: invalid %s: %s", ErrBadRequest, field, hint)
}
