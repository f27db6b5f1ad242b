package display

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStatus is returned when the status body cannot be decoded.
	ErrMalformedStatus = errors.New("display: malformed status")
)

// HTTPError is returned when the backend answers with a non-200 status.
type HTTPError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("display: GET %s: unexpected status %d", e.URL, e.StatusCode)
}
