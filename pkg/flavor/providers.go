package flavor

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// ProviderFunc adapts a function to Provider.
type ProviderFunc struct {
	Source string
	Fn     func(ctx context.Context) (string, error)
}

// Func wraps fn as a Provider named source.
func Func(source string, fn func(ctx context.Context) (string, error)) Provider {
	return ProviderFunc{Source: source, Fn: fn}
}

// Name implements Provider.
func (p ProviderFunc) Name() string { return p.Source }

// Lookup implements Provider.
func (p ProviderFunc) Lookup(ctx context.Context) (string, error) {
	if p.Fn == nil {
		return "", domain.Absent(p.Source, nil)
	}
	return p.Fn(ctx)
}

// Static returns a provider that always yields value.
func Static(value string) Provider {
	return Func("static", func(context.Context) (string, error) {
		return value, nil
	})
}

// Env reads the environment variable name on every lookup. An unset
// variable is absent; a set but empty one is returned as empty.
func Env(name string) Provider {
	source := "env:" + name
	return Func(source, func(context.Context) (string, error) {
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", domain.Absent(source, nil)
		}
		return value, nil
	})
}

type chain struct {
	providers []Provider
}

// Chain returns the first non-empty value among providers, in order.
// When none yields a value the combined errors are reported as absent.
func Chain(providers ...Provider) Provider {
	flat := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			flat = append(flat, p)
		}
	}
	return &chain{providers: flat}
}

func (c *chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *chain) Lookup(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c.providers {
		value, err := p.Lookup(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if value != "" {
			return value, nil
		}
		errs = append(errs, domain.Absent(p.Name(), domain.ErrSignalEmpty))
	}
	return "", domain.Absent(c.Name(), errors.Join(errs...))
}
