//go:build flavor_dev

package flavor

import "github.com/polisai/polis-flavor/pkg/domain"

func init() {
	compiled = append(compiled, domain.SymbolDev)
}
