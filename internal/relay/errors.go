package relay

import (
	"errors"
	"fmt"
)

// Common relay error types
var (
	ErrMissingURL     = errors.New("url parameter is required")
	ErrBadToken       = errors.New("token does not match")
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
	ErrFetchFault     = errors.New("upstream fetch failed")
)

// UpstreamStatusError is a soft failure: the upstream answered, but not with a 2xx status.
// It is absorbed into an empty 200 response.
type UpstreamStatusError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// FetchFaultError is a network-level failure (DNS, refused connection, timeout,
// unusable URL). Whether it degrades or surfaces is decided by the FaultPolicy.
type FetchFaultError struct {
	URL string
	Err error
}

func (e *FetchFaultError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *FetchFaultError) Unwrap() []error {
	return []error{ErrFetchFault, e.Err}
}

// NewFetchFaultError creates a new FetchFaultError
func NewFetchFaultError(url string, err error) *FetchFaultError {
	return &FetchFaultError{URL: url, Err: err}
}

// IsSoftFailure returns true if the error is a non-success upstream status
func IsSoftFailure(err error) bool {
	return errors.Is(err, ErrUpstreamStatus)
}

// IsFetchFault returns true if the error is a network-level fetch failure
func IsFetchFault(err error) bool {
	return errors.Is(err, ErrFetchFault)
}
