package carrier

import (
	"fmt"

	"github.com/pkg/errors"
)

// APIError is returned when a carrier call fails with an HTTP-level response.
// StatusCode carries the upstream status so callers can distinguish a record
// the carrier no longer knows from other failures.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("external API error: %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("external API error: %s: %s", e.Service, e.Message)
}

// IsNotFound reports whether the carrier responded with a 404 for the record.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsNotFound reports whether err is a carrier 404, unwrapping as needed.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
