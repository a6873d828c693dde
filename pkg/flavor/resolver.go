package flavor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polisai/polis-flavor/pkg/domain"
	"github.com/polisai/polis-flavor/pkg/telemetry"
)

// Provider supplies the raw build-time configuration signal.
type Provider interface {
	// Name identifies the signal source in logs and metrics.
	Name() string
	// Lookup returns the raw value. An absent signal is reported as an error
	// matching domain.ErrSignalAbsent.
	Lookup(ctx context.Context) (string, error)
}

// Resolver applies the resolution policy to a Provider.
type Resolver struct {
	provider Provider
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over provider. A nil provider always
// resolves to the default flavor.
func NewResolver(provider Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve is shorthand for NewResolver(provider).Resolve(ctx).
func Resolve(ctx context.Context, provider Provider) domain.Flavor {
	return NewResolver(provider).Resolve(ctx)
}

// Resolve returns the current flavor. It never fails: every failure maps to
// domain.DefaultFlavor. Values are not checked against the recognized set.
func (r *Resolver) Resolve(ctx context.Context) domain.Flavor {
	source := "none"
	if r.provider != nil {
		source = r.provider.Name()
	}

	value, err := r.lookup(ctx)
	switch {
	case err != nil:
		r.logger.DebugContext(ctx, "Flavor signal unavailable, using default",
			"source", source,
			"default", domain.DefaultFlavor,
			"error", err,
		)
		telemetry.RecordResolution(ctx, source, domain.DefaultFlavor, telemetry.OutcomeDefaulted)
		return domain.DefaultFlavor
	case value == "":
		r.logger.DebugContext(ctx, "Flavor signal empty, using default",
			"source", source,
			"default", domain.DefaultFlavor,
		)
		telemetry.RecordResolution(ctx, source, domain.DefaultFlavor, telemetry.OutcomeDefaulted)
		return domain.DefaultFlavor
	}

	flavor := domain.Flavor(value)
	if !flavor.Known() {
		r.logger.WarnContext(ctx, "Flavor signal is not a recognized flavor, passing through",
			"source", source,
			"value", value,
			"recognized", domain.Flavors(),
		)
		telemetry.RecordResolution(ctx, source, flavor, telemetry.OutcomeUnrecognized)
		return flavor
	}

	telemetry.RecordResolution(ctx, source, flavor, telemetry.OutcomeResolved)
	return flavor
}

func (r *Resolver) lookup(ctx context.Context) (value string, err error) {
	if r.provider == nil {
		return "", domain.Absent("none", nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			value = ""
			err = domain.Absent(r.provider.Name(), fmt.Errorf("provider panicked: %v", rec))
		}
	}()
	return r.provider.Lookup(ctx)
}
