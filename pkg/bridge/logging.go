package bridge

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// StructuredLogger provides enhanced logging capabilities for the bridge
type StructuredLogger struct {
	logger *slog.Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *slog.Logger) *StructuredLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredLogger{logger: logger}
}

// LogCall logs a dispatched channel call. errorCode is the reply error code
// or the transport failure class.
func (sl *StructuredLogger) LogCall(ctx context.Context, channel, method, status string, duration time.Duration, errorCode string) {
	attrs := []slog.Attr{
		slog.String("channel", channel),
		slog.String("method", method),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if errorCode != "" {
		attrs = append(attrs, slog.String("error_code", errorCode))
	}
	attrs = appendTrace(ctx, attrs)

	level := slog.LevelDebug
	if errorCode != "" {
		level = slog.LevelWarn
	}
	sl.logger.LogAttrs(ctx, level, "Channel call", attrs...)
}

// LogHTTPRequest logs HTTP request details
func (sl *StructuredLogger) LogHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", duration),
	}
	attrs = appendTrace(ctx, attrs)

	level := slog.LevelInfo
	if statusCode >= 400 {
		level = slog.LevelWarn
	}
	if statusCode >= 500 {
		level = slog.LevelError
	}

	sl.logger.LogAttrs(ctx, level, "HTTP request", attrs...)
}

func appendTrace(ctx context.Context, attrs []slog.Attr) []slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return attrs
	}
	return append(attrs,
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
