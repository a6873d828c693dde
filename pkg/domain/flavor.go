package domain

import "strings"

// Flavor identifies the build variant an application was packaged as.
type Flavor string

// Recognized flavors.
const (
	FlavorDev  Flavor = "dev"
	FlavorStg  Flavor = "stg"
	FlavorProd Flavor = "prod"
)

// DefaultFlavor is returned whenever the build-time signal is absent or
// unreadable.
const DefaultFlavor = FlavorDev

// Flavors returns the closed set of recognized flavors in declaration order.
func Flavors() []Flavor {
	return []Flavor{FlavorDev, FlavorStg, FlavorProd}
}

// Known reports whether f is one of the recognized flavors.
func (f Flavor) Known() bool {
	switch f {
	case FlavorDev, FlavorStg, FlavorProd:
		return true
	default:
		return false
	}
}

func (f Flavor) String() string {
	return string(f)
}

// Symbol is a compile-time flavor symbol. At most one is expected to be
// defined per build; when several are, the first in Symbols() order wins.
type Symbol string

// Compile-time symbols.
const (
	SymbolDev  Symbol = "DEV"
	SymbolStg  Symbol = "STG"
	SymbolProd Symbol = "PROD"
)

// Symbols returns the symbols in precedence order.
func Symbols() []Symbol {
	return []Symbol{SymbolDev, SymbolStg, SymbolProd}
}

// Flavor maps the symbol to the flavor it selects.
func (s Symbol) Flavor() Flavor {
	return Flavor(strings.ToLower(string(s)))
}
