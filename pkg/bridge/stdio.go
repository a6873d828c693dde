package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polisai/polis-flavor/pkg/channel"
)

const maxFrameBytes = 1 << 20

// Frame is one line read by the stdio bridge
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel"`
	Message json.RawMessage `json:"message"`
}

// FrameReply is the line written for each Frame. Reply is null when the
// call was not implemented or could not be routed.
type FrameReply struct {
	ID    string          `json:"id"`
	Reply json.RawMessage `json:"reply"`
	Error string          `json:"error,omitempty"`
}

// StdioOption configures ServeStdio
type StdioOption func(*stdioOptions)

type stdioOptions struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithStdioLogger sets the logger for per-call log lines
func WithStdioLogger(logger *slog.Logger) StdioOption {
	return func(o *stdioOptions) { o.logger = logger }
}

// WithStdioMetrics records calls into m
func WithStdioMetrics(m *Metrics) StdioOption {
	return func(o *stdioOptions) { o.metrics = m }
}

// ServeStdio answers line-delimited frames from r on w, in order. It returns
// nil at EOF and ctx.Err() on cancellation.
func ServeStdio(ctx context.Context, r io.Reader, w io.Writer, messenger *channel.Messenger, opts ...StdioOption) error {
	o := stdioOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	d := newDispatcher(messenger, o.metrics, o.logger)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- bytes.Clone(line):
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("read frames: %w", err)
				}
				return nil
			}
			if err := enc.Encode(handleFrame(ctx, d, line)); err != nil {
				return fmt.Errorf("write frame reply: %w", err)
			}
		}
	}
}

func handleFrame(ctx context.Context, d *dispatcher, line []byte) FrameReply {
	var frame Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		return FrameReply{ID: uuid.NewString(), Error: fmt.Sprintf("%v: %v", ErrInvalidFrame, err)}
	}
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}
	if frame.Channel == "" {
		return FrameReply{ID: frame.ID, Error: fmt.Sprintf("%v: missing channel", ErrInvalidFrame)}
	}

	out, err := d.exchange(ctx, frame.Channel, frame.Message)
	switch {
	case err != nil:
		return FrameReply{ID: frame.ID, Error: err.Error()}
	case len(out) == 0:
		return FrameReply{ID: frame.ID}
	default:
		return FrameReply{ID: frame.ID, Reply: out}
	}
}
