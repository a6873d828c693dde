package channel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEndpoint_DispatchKnownMethod(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply {
		return Success("prod")
	})

	reply := e.Dispatch(context.Background(), MethodCall{Method: "getFlavor"})
	require.True(t, reply.IsSuccess())
	assert.Equal(t, "prod", reply.Value)
}

func TestEndpoint_UnknownMethodIsNotImplemented(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("dev") })

	reply := e.Dispatch(context.Background(), MethodCall{Method: "foo"})
	assert.True(t, reply.IsNotImplemented())
	assert.Nil(t, reply.Value)
	assert.Nil(t, reply.Err)
}

func TestEndpoint_NilHandlerUnregisters(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("dev") })
	e.Handle("getFlavor", nil)

	assert.Empty(t, e.Methods())
	assert.True(t, e.Dispatch(context.Background(), MethodCall{Method: "getFlavor"}).IsNotImplemented())
}

func TestEndpoint_PanicBecomesInternalError(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("boom", func(context.Context, MethodCall) Reply { panic("kaboom") })

	reply := e.Dispatch(context.Background(), MethodCall{Method: "boom"})
	require.True(t, reply.IsError())
	assert.Equal(t, CodeInternal, reply.Err.Code)
	assert.Contains(t, reply.Err.Message, "kaboom")
}

func TestEndpoint_MiddlewareOrderAndVisibility(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("stg") })

	var seen []string
	record := func(tag string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, call MethodCall) Reply {
				seen = append(seen, tag+":"+call.Method)
				return next(ctx, call)
			}
		}
	}
	e.Use(record("outer"), record("inner"))

	e.Dispatch(context.Background(), MethodCall{Method: "getFlavor"})
	e.Dispatch(context.Background(), MethodCall{Method: "missing"})

	assert.Equal(t, []string{
		"outer:getFlavor", "inner:getFlavor",
		"outer:missing", "inner:missing",
	}, seen)
}

func TestEndpoint_HandlerMiddlewareSkipsUnknownMethods(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("stg") })

	var seen []string
	e.Use(func(next Handler) Handler {
		return func(ctx context.Context, call MethodCall) Reply {
			seen = append(seen, "outer:"+call.Method)
			return next(ctx, call)
		}
	})
	e.UseHandlers(func(Handler) Handler {
		return func(_ context.Context, call MethodCall) Reply {
			seen = append(seen, "deny:"+call.Method)
			return Failure(CodePermissionDenied, "denied", nil)
		}
	})

	denied := e.Dispatch(context.Background(), MethodCall{Method: "getFlavor"})
	require.True(t, denied.IsError())
	assert.Equal(t, CodePermissionDenied, denied.Err.Code)

	assert.True(t, e.Dispatch(context.Background(), MethodCall{Method: "foo"}).IsNotImplemented())

	assert.Equal(t, []string{"outer:getFlavor", "deny:getFlavor", "outer:foo"}, seen)
}

func TestEndpoint_FillsChannelName(t *testing.T) {
	e := NewEndpoint("test/flavor")
	var got string
	e.Handle("who", func(_ context.Context, call MethodCall) Reply {
		got = call.Channel
		return Success(nil)
	})
	e.Dispatch(context.Background(), MethodCall{Method: "who"})
	assert.Equal(t, "test/flavor", got)
}

func TestEndpoint_ConcurrentDispatch(t *testing.T) {
	e := NewEndpoint("test/flavor")
	e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("prod") })

	var wg sync.WaitGroup
	results := make([]Reply, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Dispatch(context.Background(), MethodCall{Method: "getFlavor"})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, Success("prod"), r)
	}
}

func TestEndpoint_OnlyRegisteredMethodsSucceedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		method := rapid.StringMatching(`^[a-zA-Z]{1,12}$`).Draw(t, "method")

		e := NewEndpoint("prop/flavor")
		e.Handle("getFlavor", func(context.Context, MethodCall) Reply { return Success("dev") })

		reply := e.Dispatch(context.Background(), MethodCall{Method: method})
		if method == "getFlavor" {
			if !reply.IsSuccess() {
				t.Fatalf("getFlavor returned %v", reply)
			}
			return
		}
		if !reply.IsNotImplemented() {
			t.Fatalf("method %q returned %v, want not implemented", method, reply)
		}
	})
}
