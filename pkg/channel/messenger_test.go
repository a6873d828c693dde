package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/polisai/polis-flavor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlavorMessenger(t *testing.T, value string) *Messenger {
	t.Helper()
	e := NewEndpoint("io.polis.flavor/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success(value) })
	m := NewMessenger(nil)
	require.NoError(t, m.Register(e))
	return m
}

func TestMessenger_Send(t *testing.T) {
	m := newFlavorMessenger(t, "prod")

	out, err := m.Send(context.Background(), "io.polis.flavor/flavor", []byte(`{"method":"getFlavor","args":null}`))
	require.NoError(t, err)
	assert.Equal(t, `["prod"]`, string(out))

	out, err = m.Send(context.Background(), "io.polis.flavor/flavor", []byte(`{"method":"foo"}`))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMessenger_UnknownChannel(t *testing.T) {
	m := newFlavorMessenger(t, "prod")

	_, err := m.Send(context.Background(), "nope", []byte(`{"method":"getFlavor"}`))
	assert.True(t, domain.IsChannelNotFound(err))

	_, err = m.Dispatch(context.Background(), "nope", MethodCall{Method: "getFlavor"})
	assert.True(t, domain.IsChannelNotFound(err))
}

func TestMessenger_MalformedCall(t *testing.T) {
	m := newFlavorMessenger(t, "prod")
	_, err := m.Send(context.Background(), "io.polis.flavor/flavor", []byte(`{`))
	assert.ErrorIs(t, err, domain.ErrMalformedCall)
}

func TestMessenger_RegisterAndAlias(t *testing.T) {
	m := newFlavorMessenger(t, "stg")

	err := m.Register(NewEndpoint("io.polis.flavor/flavor"))
	assert.ErrorIs(t, err, domain.ErrDuplicateChannel)

	assert.ErrorIs(t, m.Register(NewEndpoint("")), domain.ErrConfigInvalid)

	require.NoError(t, m.Alias("com.personalfinance.app/flavor", "io.polis.flavor/flavor"))
	assert.ErrorIs(t, m.Alias("com.personalfinance.app/flavor", "io.polis.flavor/flavor"), domain.ErrDuplicateChannel)
	assert.True(t, domain.IsChannelNotFound(m.Alias("x", "missing")))

	reply, err := m.Dispatch(context.Background(), "com.personalfinance.app/flavor", MethodCall{Method: "getFlavor"})
	require.NoError(t, err)
	assert.Equal(t, Success("stg"), reply)

	assert.Equal(t, []string{"com.personalfinance.app/flavor", "io.polis.flavor/flavor"}, m.Channels())
}

type unencodable struct{}

func (unencodable) MarshalJSON() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestMessenger_UnencodableValueBecomesInternalError(t *testing.T) {
	e := NewEndpoint("bad")
	e.Handle("value", func(context.Context, MethodCall) Reply { return Success(unencodable{}) })
	m := NewMessenger(JSONMethodCodec{})
	require.NoError(t, m.Register(e))

	out, err := m.Send(context.Background(), "bad", []byte(`{"method":"value"}`))
	require.NoError(t, err)

	reply, err := m.Codec().DecodeReply(out)
	require.NoError(t, err)
	require.True(t, reply.IsError())
	assert.Equal(t, CodeInternal, reply.Err.Code)
}
