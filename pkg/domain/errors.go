package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrSignalAbsent     = errors.New("flavor signal absent")
	ErrSignalEmpty      = errors.New("flavor signal empty")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrDuplicateChannel = errors.New("channel already registered")
	ErrMalformedCall    = errors.New("malformed method call")
	ErrMalformedReply   = errors.New("malformed reply envelope")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrPolicyDenied     = errors.New("call denied by policy")
)

// SignalError reports that a provider could not produce its configuration
// signal. Callers of the resolver never see it; it surfaces in logs and in
// Provider.Lookup results.
type SignalError struct {
	Source string
	Err    error
}

func (e *SignalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, ErrSignalAbsent)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// Is matches ErrSignalAbsent regardless of the wrapped cause.
func (e *SignalError) Is(target error) bool {
	return target == ErrSignalAbsent
}

// Absent builds a SignalError for source wrapping cause.
func Absent(source string, cause error) error {
	return &SignalError{Source: source, Err: cause}
}

// ChannelNotFoundError carries the channel name that failed to route.
type ChannelNotFoundError struct {
	Channel string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel not found: %s", e.Channel)
}

func (e *ChannelNotFoundError) Is(target error) bool {
	return target == ErrChannelNotFound
}

// IsChannelNotFound checks if the error indicates an unrouted channel.
func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}
