package flavor

import (
	"context"

	"github.com/polisai/polis-flavor/pkg/channel"
)

// DefaultChannel is the channel name the flavor endpoint is served under
// unless configured otherwise.
const DefaultChannel = "io.polis.flavor/flavor"

// MethodGetFlavor is the only method the flavor endpoint answers.
const MethodGetFlavor = "getFlavor"

// NewEndpoint builds the flavor endpoint on channel name. getFlavor resolves
// afresh on every call; any other method is not implemented.
func NewEndpoint(name string, resolver *Resolver) *channel.Endpoint {
	if name == "" {
		name = DefaultChannel
	}
	e := channel.NewEndpoint(name)
	e.Handle(MethodGetFlavor, GetFlavorHandler(resolver))
	return e
}

// GetFlavorHandler answers with the resolved flavor. Arguments are ignored.
func GetFlavorHandler(resolver *Resolver) channel.Handler {
	return func(ctx context.Context, _ channel.MethodCall) channel.Reply {
		return channel.Success(string(resolver.Resolve(ctx)))
	}
}
