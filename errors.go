package hxnav

import (
	"errors"
	"fmt"
)

// Configuration errors: the markup does not satisfy a directive's contract.
var (
	ErrBadAttribute     = errors.New("hxnav: missing or invalid directive attribute")
	ErrMissingCompanion = errors.New("hxnav: companion element not found")
	ErrNoForm           = errors.New("hxnav: no form found around element")
	ErrHarvestMissing   = errors.New("hxnav: harvest container missing from fetched document")
)

// Transport errors: a fetch was rejected or answered with a non-200 status.
var (
	ErrTransport = errors.New("hxnav: fetch failed")
	ErrBadStatus = errors.New("hxnav: unexpected response status")
)

// FetchError describes a failed engine fetch.
type FetchError struct {
	URL    string
	Status int   // set for non-200 responses
	Err    error // set for rejected fetches
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hxnav: fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("hxnav: fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.Status != 0 {
		errs = append(errs, ErrBadStatus)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsConfigError checks if err comes from markup that violates a directive's
// contract.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrBadAttribute) ||
		errors.Is(err, ErrMissingCompanion) ||
		errors.Is(err, ErrNoForm) ||
		errors.Is(err, ErrHarvestMissing)
}

// IsTransportError checks if err is a failed fetch.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}
