package oasis

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNoData is matched by errors.Is when OASIS answered with an error report
// instead of a CSV payload.
var ErrNoData = errors.New("oasis: no data returned")

// ArchiveError means the response body was not a zip archive. The raw
// response is kept for diagnostics.
type ArchiveError struct {
	StatusCode int
	Body       []byte
	Params     url.Values
	Err        error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("oasis: could not load zip archive (HTTP %d, %d bytes): %v", e.StatusCode, len(e.Body), e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// ReportError carries the description OASIS put in its error report.
type ReportError struct {
	Description string
	Params      url.Values
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("oasis: no data: %s", e.Description)
}

func (e *ReportError) Unwrap() error {
	return ErrNoData
}
