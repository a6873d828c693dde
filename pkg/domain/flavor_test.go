package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlavorKnown(t *testing.T) {
	for _, f := range Flavors() {
		assert.True(t, f.Known(), f)
	}
	assert.False(t, Flavor("staging").Known())
	assert.False(t, Flavor("").Known())
	assert.Equal(t, FlavorDev, DefaultFlavor)
}

func TestSymbolFlavor(t *testing.T) {
	assert.Equal(t, FlavorDev, SymbolDev.Flavor())
	assert.Equal(t, FlavorStg, SymbolStg.Flavor())
	assert.Equal(t, FlavorProd, SymbolProd.Flavor())
	assert.Equal(t, []Symbol{SymbolDev, SymbolStg, SymbolProd}, Symbols())
}

func TestSignalErrorIs(t *testing.T) {
	cause := errors.New("no such file")
	err := fmt.Errorf("lookup: %w", Absent("resource", cause))

	assert.ErrorIs(t, err, ErrSignalAbsent)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "resource: no such file")

	bare := Absent("env", nil)
	assert.Equal(t, "env: flavor signal absent", bare.Error())
}

func TestChannelNotFoundError(t *testing.T) {
	err := fmt.Errorf("send: %w", &ChannelNotFoundError{Channel: "x/y"})
	assert.True(t, IsChannelNotFound(err))
	assert.False(t, IsChannelNotFound(ErrMalformedCall))
	assert.Contains(t, err.Error(), "x/y")
}
