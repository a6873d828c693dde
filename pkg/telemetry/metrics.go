package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// Outcome classifies a flavor resolution.
type Outcome string

// Resolution outcomes.
const (
	OutcomeResolved     Outcome = "resolved"
	OutcomeDefaulted    Outcome = "defaulted"
	OutcomeUnrecognized Outcome = "unrecognized"
)

var (
	metricsOnce          sync.Once
	metricsInitErr       error
	resolutionCounter    metric.Int64Counter
	callCounter          metric.Int64Counter
	callLatencyHistogram metric.Float64Histogram
)

// RecordResolution counts one flavor resolution.
func RecordResolution(ctx context.Context, source string, flavor domain.Flavor, outcome Outcome) {
	if err := ensureMetrics(); err != nil {
		return
	}

	resolutionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flavor.source", source),
		attribute.String("flavor.value", string(flavor)),
		attribute.String("flavor.outcome", string(outcome)),
	))
}

// RecordCall counts one dispatched channel call and its latency.
func RecordCall(ctx context.Context, channelName, method, status string, duration time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("channel.name", channelName),
		attribute.String("channel.method", method),
		attribute.String("channel.status", status),
	}

	callCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if duration > 0 {
		callLatencyHistogram.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("flavor.host")

		resolutionCounter, metricsInitErr = meter.Int64Counter(
			"flavor.resolutions_total",
			metric.WithDescription("Flavor resolutions partitioned by source and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		callCounter, metricsInitErr = meter.Int64Counter(
			"flavor.channel.calls_total",
			metric.WithDescription("Method channel calls partitioned by reply status"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		callLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"flavor.channel.call_duration_ms",
			metric.WithDescription("Observed method channel dispatch latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
