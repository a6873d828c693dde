package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status classifies a Reply.
type Status string

// Reply statuses.
const (
	StatusSuccess        Status = "success"
	StatusError          Status = "error"
	StatusNotImplemented Status = "not_implemented"
)

// Standard error codes used by the built-in handlers and middleware.
const (
	CodeInternal         = "INTERNAL"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodePolicyError      = "POLICY_ERROR"
)

// MethodCall is a single request crossing the channel boundary.
type MethodCall struct {
	// Channel is filled in by the Messenger before dispatch.
	Channel string
	Method  string
	// Arguments is the raw JSON payload, nil when the caller sent none.
	Arguments json.RawMessage
	// ID correlates the call in logs and transport frames. Optional.
	ID string
}

// CallError is the payload of an error reply.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Reply is the result of dispatching a MethodCall. Only one of Value and Err
// is meaningful, as selected by Status.
type Reply struct {
	Status Status
	Value  any
	Err    *CallError
}

// Success builds a success reply carrying v.
func Success(v any) Reply {
	return Reply{Status: StatusSuccess, Value: v}
}

// Failure builds an error reply.
func Failure(code, message string, details any) Reply {
	return Reply{Status: StatusError, Err: &CallError{Code: code, Message: message, Details: details}}
}

// NotImplemented builds the marker reply for unhandled methods.
func NotImplemented() Reply {
	return Reply{Status: StatusNotImplemented}
}

// IsSuccess reports whether r is a success reply.
func (r Reply) IsSuccess() bool { return r.Status == StatusSuccess }

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool { return r.Status == StatusError }

// IsNotImplemented reports whether r is the not-implemented marker.
func (r Reply) IsNotImplemented() bool { return r.Status == StatusNotImplemented }

func (r Reply) String() string {
	switch r.Status {
	case StatusSuccess:
		return fmt.Sprintf("success(%v)", r.Value)
	case StatusError:
		if r.Err == nil {
			return "error"
		}
		return fmt.Sprintf("error(%s)", r.Err.Error())
	case StatusNotImplemented:
		return "not implemented"
	default:
		return fmt.Sprintf("unknown(%s)", string(r.Status))
	}
}

// ErrNotImplemented is returned by helpers that flatten a NotImplemented
// reply into an error.
var ErrNotImplemented = errors.New("method not implemented")
