package platform

import (
	"errors"
	"fmt"
)

// ErrUpstreamShape indicates a platform API answered with a payload that
// lacks the fields an extractor relies on.
var ErrUpstreamShape = errors.New("unexpected upstream response")

// ShapeError reports which field of an upstream payload was missing or malformed.
type ShapeError struct {
	Platform string
	Field    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected upstream response: missing %s", e.Platform, e.Field)
}

func (e *ShapeError) Unwrap() error {
	return ErrUpstreamShape
}

// APIError is returned when a platform API answers with an application-level
// error code.
type APIError struct {
	Platform string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: code=%d", e.Platform, e.Code)
	}
	return fmt.Sprintf("%s api error: code=%d message=%s", e.Platform, e.Code, e.Message)
}
