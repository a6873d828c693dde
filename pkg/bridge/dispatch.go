package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/domain"
)

// Call outcomes reported by the transports in addition to reply statuses.
const (
	outcomeMalformed = "malformed"
	outcomeNotFound  = "not_found"
)

// dispatcher is shared by the HTTP and stdio transports.
type dispatcher struct {
	messenger *channel.Messenger
	metrics   *Metrics
	log       *StructuredLogger
}

func newDispatcher(messenger *channel.Messenger, metrics *Metrics, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		messenger: messenger,
		metrics:   metrics,
		log:       NewStructuredLogger(logger),
	}
}

// exchange decodes message, routes it to channelName and returns the encoded
// reply. Errors wrap domain.ErrMalformedCall or domain.ErrChannelNotFound.
func (d *dispatcher) exchange(ctx context.Context, channelName string, message []byte) ([]byte, error) {
	start := time.Now()
	codec := d.messenger.Codec()

	call, err := codec.DecodeMethodCall(message)
	if err != nil {
		d.record(ctx, channelName, "", outcomeMalformed, start, outcomeMalformed)
		return nil, err
	}

	reply, err := d.messenger.Dispatch(ctx, channelName, call)
	if err != nil {
		outcome := "dispatch_error"
		if errors.Is(err, domain.ErrChannelNotFound) {
			outcome = outcomeNotFound
		}
		d.record(ctx, channelName, call.Method, outcome, start, outcome)
		return nil, err
	}

	out, err := codec.EncodeReply(reply)
	if err != nil {
		reply = channel.Failure(channel.CodeInternal, err.Error(), nil)
		if out, err = codec.EncodeReply(reply); err != nil {
			return nil, err
		}
	}

	code := ""
	if reply.IsError() {
		code = reply.Err.Code
	}
	d.record(ctx, channelName, call.Method, string(reply.Status), start, code)
	return out, nil
}

func (d *dispatcher) record(ctx context.Context, channelName, method, status string, start time.Time, errorCode string) {
	duration := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordCall(channelName, method, status, duration)
	}
	d.log.LogCall(ctx, channelName, method, status, duration, errorCode)
}
