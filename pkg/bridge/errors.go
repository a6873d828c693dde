package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bridge transports
var (
	// ErrInvalidFrame indicates a stdio line that is not a frame
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrUnexpectedStatus indicates an HTTP reply the client cannot map
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// StatusError carries the HTTP status and body of an unmapped response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// IsUnexpectedStatus checks if the error is an unmapped HTTP response
func IsUnexpectedStatus(err error) bool {
	return errors.Is(err, ErrUnexpectedStatus)
}
