package retention

import (
	"fmt"

	"skyscraper-hq/skyscraper/pkg/platform"
)

// FetchError is returned when a page of a collection could not be
// retrieved. It fails the whole pass.
type FetchError struct {
	Platform string
	Kind     platform.Kind

	// Page is the 1-based number of the page that failed.
	Page int

	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s page %d: %v", e.Platform, e.Kind, e.Page, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// DeleteError describes a failed deletion of a single record. It never
// fails a pass; it is surfaced through logs and counters.
type DeleteError struct {
	Platform string
	Kind     platform.Kind
	ID       string
	Cause    error
}

// Error implements the error interface.
func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s %s %s: %v", e.Platform, e.Kind, e.ID, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *DeleteError) Unwrap() error {
	return e.Cause
}

// RateLimited reports whether the platform refused the deletion because
// of rate limiting.
func (e *DeleteError) RateLimited() bool {
	return platform.IsRateLimited(e.Cause)
}
