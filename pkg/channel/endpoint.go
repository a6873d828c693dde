package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler answers one method call.
type Handler func(ctx context.Context, call MethodCall) Reply

// Middleware wraps a Handler. Middleware sees every call, including calls
// that resolve to NotImplemented.
type Middleware func(next Handler) Handler

// Endpoint is the host-side dispatch table of one channel: method name to
// handler, with NotImplemented for everything else.
type Endpoint struct {
	name       string
	mu         sync.RWMutex
	handlers   map[string]Handler
	middleware []Middleware
	// guards wrap registered handlers only.
	guards []Middleware
}

// NewEndpoint creates an empty endpoint for the named channel.
func NewEndpoint(name string) *Endpoint {
	return &Endpoint{
		name:     name,
		handlers: make(map[string]Handler),
	}
}

// Name returns the channel name.
func (e *Endpoint) Name() string {
	return e.name
}

// Handle registers h for method, replacing any previous handler.
// A nil handler unregisters the method.
func (e *Endpoint) Handle(method string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h == nil {
		delete(e.handlers, method)
		return
	}
	e.handlers[method] = h
}

// Use appends middleware. The first middleware added is the outermost.
func (e *Endpoint) Use(mw ...Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.middleware = append(e.middleware, mw...)
}

// UseHandlers appends middleware that wraps registered handlers only. Calls
// to unknown methods bypass it and stay NotImplemented.
func (e *Endpoint) UseHandlers(mw ...Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guards = append(e.guards, mw...)
}

// Methods returns the registered method names, sorted.
func (e *Endpoint) Methods() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	methods := make([]string, 0, len(e.handlers))
	for m := range e.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Dispatch routes call to its handler through the middleware chain.
// It never panics: a panicking handler yields an INTERNAL error reply.
func (e *Endpoint) Dispatch(ctx context.Context, call MethodCall) Reply {
	if call.Channel == "" {
		call.Channel = e.name
	}

	e.mu.RLock()
	h, ok := e.handlers[call.Method]
	chain := make([]Middleware, len(e.middleware))
	copy(chain, e.middleware)
	var guards []Middleware
	if ok {
		guards = make([]Middleware, len(e.guards))
		copy(guards, e.guards)
	}
	e.mu.RUnlock()

	if !ok {
		h = notImplemented
	}
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	h = recoverHandler(h)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h(ctx, call)
}

func notImplemented(context.Context, MethodCall) Reply {
	return NotImplemented()
}

func recoverHandler(next Handler) Handler {
	return func(ctx context.Context, call MethodCall) (reply Reply) {
		defer func() {
			if r := recover(); r != nil {
				reply = Failure(CodeInternal, fmt.Sprintf("handler for %s panicked: %v", call.Method, r), nil)
			}
		}()
		return next(ctx, call)
	}
}
