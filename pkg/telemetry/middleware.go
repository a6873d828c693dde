package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/polis-flavor/pkg/channel"
)

// TracerName is the instrumentation scope of channel spans.
const TracerName = "github.com/polisai/polis-flavor/channel"

// TracingMiddleware opens a "channel.dispatch" span around every call.
// A nil tracer uses the global provider.
func TracingMiddleware(tracer trace.Tracer) channel.Middleware {
	return func(next channel.Handler) channel.Handler {
		return func(ctx context.Context, call channel.MethodCall) channel.Reply {
			t := tracer
			if t == nil {
				t = otel.Tracer(TracerName)
			}
			ctx, span := t.Start(ctx, "channel.dispatch",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("channel.name", call.Channel),
					attribute.String("channel.method", call.Method),
				),
			)
			defer span.End()

			reply := next(ctx, call)

			span.SetAttributes(attribute.String("channel.status", string(reply.Status)))
			if reply.IsError() && reply.Err != nil {
				span.SetAttributes(attribute.String("channel.error_code", reply.Err.Code))
				span.SetStatus(codes.Error, reply.Err.Error())
			}
			return reply
		}
	}
}

// MetricsMiddleware records every call with RecordCall.
func MetricsMiddleware() channel.Middleware {
	return func(next channel.Handler) channel.Handler {
		return func(ctx context.Context, call channel.MethodCall) channel.Reply {
			start := time.Now()
			reply := next(ctx, call)
			RecordCall(ctx, call.Channel, call.Method, string(reply.Status), time.Since(start))
			return reply
		}
	}
}
