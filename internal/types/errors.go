package types

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceNotFound is returned when no extraction attempt matched
	ErrPriceNotFound = errors.New("price not found on page")

	// ErrUnknownStrategy is returned for an item whose strategy has no adapter
	ErrUnknownStrategy = errors.New("unknown extraction strategy")

	// ErrGateClosed is returned when the operator input channel ended before confirmation
	ErrGateClosed = errors.New("operator input closed")
)

// PersistenceError wraps failures reading or writing the state snapshot or
// the session material. These abort the whole run.
type PersistenceError struct {
	Resource string
	Op       string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err carries a PersistenceError
func IsPersistenceError(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}
