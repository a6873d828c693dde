package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// MethodChannel is the caller side of a named channel.
type MethodChannel struct {
	name   string
	sender Sender
	codec  MethodCodec
}

// NewMethodChannel binds name to sender. A nil codec selects JSONMethodCodec.
func NewMethodChannel(name string, sender Sender, codec MethodCodec) *MethodChannel {
	if codec == nil {
		codec = JSONMethodCodec{}
	}
	return &MethodChannel{name: name, sender: sender, codec: codec}
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// Invoke calls method with args (marshalled to JSON, nil for none).
// A channel nobody listens on yields NotImplemented, matching an endpoint
// that does not know the method. Transport and codec failures are returned
// as errors.
func (c *MethodChannel) Invoke(ctx context.Context, method string, args any) (Reply, error) {
	call := MethodCall{Method: method}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return Reply{}, fmt.Errorf("encode arguments for %s: %w", method, err)
		}
		call.Arguments = raw
	}

	msg, err := c.codec.EncodeMethodCall(call)
	if err != nil {
		return Reply{}, err
	}

	resp, err := c.sender.Send(ctx, c.name, msg)
	if err != nil {
		if domain.IsChannelNotFound(err) {
			return NotImplemented(), nil
		}
		return Reply{}, fmt.Errorf("send %s on %s: %w", method, c.name, err)
	}

	return c.codec.DecodeReply(resp)
}

// InvokeString calls method and returns its success value as a string.
// Non-success replies are returned as errors: *CallError for error replies,
// ErrNotImplemented for the marker.
func (c *MethodChannel) InvokeString(ctx context.Context, method string, args any) (string, error) {
	reply, err := c.Invoke(ctx, method, args)
	if err != nil {
		return "", err
	}
	switch reply.Status {
	case StatusSuccess:
		s, ok := reply.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s returned %T, want string", domain.ErrMalformedReply, method, reply.Value)
		}
		return s, nil
	case StatusError:
		if reply.Err == nil {
			return "", fmt.Errorf("%w: %s returned an empty error reply", domain.ErrMalformedReply, method)
		}
		return "", reply.Err
	default:
		return "", fmt.Errorf("%w: %s", ErrNotImplemented, method)
	}
}
