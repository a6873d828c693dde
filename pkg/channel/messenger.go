package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// Sender delivers an encoded method call to a channel and returns the encoded
// reply. Messenger implements it in-process; bridge.Client over HTTP.
type Sender interface {
	Send(ctx context.Context, channel string, message []byte) ([]byte, error)
}

// Messenger routes messages to endpoints by channel name.
type Messenger struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	codec     MethodCodec
}

var _ Sender = (*Messenger)(nil)

// NewMessenger creates a messenger using codec, or JSONMethodCodec when nil.
func NewMessenger(codec MethodCodec) *Messenger {
	if codec == nil {
		codec = JSONMethodCodec{}
	}
	return &Messenger{
		endpoints: make(map[string]*Endpoint),
		codec:     codec,
	}
}

// Codec returns the codec used to frame messages.
func (m *Messenger) Codec() MethodCodec {
	return m.codec
}

// Register adds an endpoint under its own name.
func (m *Messenger) Register(e *Endpoint) error {
	if e == nil || e.Name() == "" {
		return fmt.Errorf("%w: endpoint must have a name", domain.ErrConfigInvalid)
	}
	return m.bind(e.Name(), e)
}

// Alias routes alias to the endpoint already registered as target.
func (m *Messenger) Alias(alias, target string) error {
	e, ok := m.Endpoint(target)
	if !ok {
		return &domain.ChannelNotFoundError{Channel: target}
	}
	return m.bind(alias, e)
}

func (m *Messenger) bind(name string, e *Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.endpoints[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateChannel, name)
	}
	m.endpoints[name] = e
	return nil
}

// Endpoint returns the endpoint bound to name.
func (m *Messenger) Endpoint(name string) (*Endpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.endpoints[name]
	return e, ok
}

// Channels returns every routable name, aliases included, sorted.
func (m *Messenger) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.endpoints))
	for name := range m.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch delivers an already decoded call.
func (m *Messenger) Dispatch(ctx context.Context, channel string, call MethodCall) (Reply, error) {
	e, ok := m.Endpoint(channel)
	if !ok {
		return Reply{}, &domain.ChannelNotFoundError{Channel: channel}
	}
	call.Channel = channel
	return e.Dispatch(ctx, call), nil
}

// Send decodes message, dispatches it, and encodes the reply.
func (m *Messenger) Send(ctx context.Context, channel string, message []byte) ([]byte, error) {
	e, ok := m.Endpoint(channel)
	if !ok {
		return nil, &domain.ChannelNotFoundError{Channel: channel}
	}

	call, err := m.codec.DecodeMethodCall(message)
	if err != nil {
		return nil, err
	}
	call.Channel = channel

	reply := e.Dispatch(ctx, call)
	out, err := m.codec.EncodeReply(reply)
	if err != nil {
		// A handler produced something the codec cannot carry.
		fallback, ferr := m.codec.EncodeReply(Failure(CodeInternal, err.Error(), nil))
		if ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return fallback, nil
	}
	return out, nil
}
