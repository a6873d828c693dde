//go:build flavor_stg

package flavor

import "github.com/polisai/polis-flavor/pkg/domain"

func init() {
	compiled = append(compiled, domain.SymbolStg)
}
