package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/config"
	"github.com/polisai/polis-flavor/pkg/flavor"
	"github.com/polisai/polis-flavor/pkg/policy"
	"github.com/polisai/polis-flavor/pkg/telemetry"
)

// host is the assembled flavor channel: resolver, endpoint and messenger.
type host struct {
	messenger         *channel.Messenger
	resolver          *flavor.Resolver
	closer            io.Closer
	shutdownTelemetry func(context.Context) error
}

func newHost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*host, error) {
	provider, closer, err := config.BuildProvider(cfg.Flavor, logger)
	if err != nil {
		return nil, fmt.Errorf("build flavor provider: %w", err)
	}
	resolver := flavor.NewResolver(provider, flavor.WithLogger(logger))

	shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Flavor:      string(resolver.Resolve(ctx)),
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	h := &host{resolver: resolver, closer: closer, shutdownTelemetry: shutdown}

	endpoint := flavor.NewEndpoint(cfg.Channel.Name, resolver)
	endpoint.Use(telemetry.TracingMiddleware(nil), telemetry.MetricsMiddleware())

	if cfg.Policy.Enabled() {
		modules, err := policy.LoadModules(cfg.Policy.Files)
		if err != nil {
			return nil, errors.Join(err, h.Close(ctx))
		}
		engine, err := policy.NewEngine(ctx, policy.EngineOptions{
			Entrypoint: cfg.Policy.Entrypoint,
			Modules:    modules,
		})
		if err != nil {
			return nil, errors.Join(err, h.Close(ctx))
		}
		endpoint.UseHandlers(policy.Middleware(engine, logger))
		logger.Info("Channel policy loaded", "entrypoint", engine.Entrypoint(), "modules", len(modules))
	}

	h.messenger = channel.NewMessenger(nil)
	if err := h.messenger.Register(endpoint); err != nil {
		return nil, errors.Join(err, h.Close(ctx))
	}
	for _, alias := range cfg.Channel.Aliases {
		if err := h.messenger.Alias(alias, endpoint.Name()); err != nil {
			return nil, errors.Join(err, h.Close(ctx))
		}
	}

	return h, nil
}

// Close stops resource watchers and flushes spans.
func (h *host) Close(ctx context.Context) error {
	return errors.Join(h.closer.Close(), h.shutdownTelemetry(ctx))
}
