package flavor

import (
	"context"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// embedded is set at link time:
//
//	go build -ldflags "-X github.com/polisai/polis-flavor/pkg/flavor.embedded=prod"
var embedded string

// Embedded returns the provider for the link-time flavor string.
func Embedded() Provider {
	return Func("embedded", func(context.Context) (string, error) {
		if embedded == "" {
			return "", domain.Absent("embedded", nil)
		}
		return embedded, nil
	})
}
