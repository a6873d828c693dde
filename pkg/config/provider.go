package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/polisai/polis-flavor/pkg/flavor"
)

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildProvider assembles the flavor source chain in configured order. The
// returned closer stops any resource watchers and is never nil.
func BuildProvider(cfg FlavorConfig, logger *slog.Logger) (flavor.Provider, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		providers []flavor.Provider
		open      closers
	)
	for _, src := range cfg.Sources {
		p, closer, err := buildSource(src, cfg, logger)
		if err != nil {
			_ = open.Close()
			return nil, closers(nil), err
		}
		if closer != nil {
			open = append(open, closer)
		}
		providers = append(providers, p)
	}

	if len(providers) == 1 {
		return providers[0], open, nil
	}
	return flavor.Chain(providers...), open, nil
}

func buildSource(src string, cfg FlavorConfig, logger *slog.Logger) (flavor.Provider, io.Closer, error) {
	switch src {
	case SourceResource:
		if !cfg.Watch {
			return flavor.Resource(cfg.ResourceFile, cfg.ResourceName), nil, nil
		}
		w, err := flavor.NewWatchedResource(cfg.ResourceFile, cfg.ResourceName, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to watch %s: %w", cfg.ResourceFile, err)
		}
		go logReloads(w.Name(), w.Subscribe(), logger)
		return w, w, nil
	case SourceEnv:
		return flavor.Env(cfg.EnvVar), nil, nil
	case SourceEmbedded:
		return flavor.Embedded(), nil, nil
	case SourceSymbols:
		return flavor.Compiled(), nil, nil
	default:
		return nil, nil, invalid("unknown flavor source %q", src)
	}
}

// logReloads reports resource values until the watcher is closed.
func logReloads(source string, updates <-chan string, logger *slog.Logger) {
	for value := range updates {
		logger.Info("Flavor resource changed", "source", source, "value", value)
	}
}
