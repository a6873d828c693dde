package policy

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/polis-flavor/pkg/channel"
)

// Middleware denies calls the engine does not allow. Install it with
// Endpoint.UseHandlers so unknown methods still answer NotImplemented.
func Middleware(engine *Engine, logger *slog.Logger) channel.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next channel.Handler) channel.Handler {
		return func(ctx context.Context, call channel.MethodCall) channel.Reply {
			decision, err := engine.Evaluate(ctx, Input{Channel: call.Channel, Method: call.Method})
			if err != nil {
				logger.ErrorContext(ctx, "Policy evaluation failed",
					"channel", call.Channel,
					"method", call.Method,
					"error", err,
				)
				return channel.Failure(channel.CodePolicyError, err.Error(), nil)
			}

			recordDecision(trace.SpanFromContext(ctx), decision)

			if !decision.Allow {
				logger.WarnContext(ctx, "Call denied by policy",
					"channel", call.Channel,
					"method", call.Method,
					"reason", decision.Reason,
				)
				return channel.Failure(channel.CodePermissionDenied, decision.Reason, nil)
			}
			return next(ctx, call)
		}
	}
}

func recordDecision(span trace.Span, decision Decision) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Bool("policy.decision.allow", decision.Allow))
	if decision.Reason != "" {
		span.SetAttributes(attribute.String("policy.decision.reason", decision.Reason))
	}
}
