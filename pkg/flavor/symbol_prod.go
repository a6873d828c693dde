//go:build flavor_prod

package flavor

import "github.com/polisai/polis-flavor/pkg/domain"

func init() {
	compiled = append(compiled, domain.SymbolProd)
}
