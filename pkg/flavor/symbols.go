package flavor

import (
	"context"
	"slices"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// compiled holds the symbols selected by build tags (flavor_dev, flavor_stg,
// flavor_prod). Each tagged file appends its symbol in init.
var compiled []domain.Symbol

// CompiledSymbols returns the symbols defined for this build.
func CompiledSymbols() []domain.Symbol {
	return slices.Clone(compiled)
}

// Symbols returns a provider that picks the first defined symbol in
// precedence order DEV, STG, PROD.
func Symbols(defined ...domain.Symbol) Provider {
	set := slices.Clone(defined)
	return Func("symbols", func(context.Context) (string, error) {
		for _, s := range domain.Symbols() {
			if slices.Contains(set, s) {
				return string(s.Flavor()), nil
			}
		}
		return "", domain.Absent("symbols", nil)
	})
}

// Compiled is Symbols over the build-tag selected set.
func Compiled() Provider {
	return Symbols(CompiledSymbols()...)
}
