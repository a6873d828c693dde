package policy

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// EngineOptions control OPA engine construction and runtime behaviour.
type EngineOptions struct {
	// Entrypoint is the decision path (e.g. "channel/allow").
	Entrypoint string
	// Modules contains the Rego modules that should be loaded into the engine.
	Modules map[string]string
	// CacheMaxEntries bounds the decision cache size (LRU). Zero selects the
	// default size; negative disables caching entirely.
	CacheMaxEntries int
}

// Input is the document a decision is evaluated against.
type Input struct {
	Channel string
	Method  string
}

// Decision is the outcome of evaluating a call.
type Decision struct {
	Allow  bool
	Reason string
}

// Engine evaluates call decisions using an embedded OPA instance.
type Engine struct {
	entrypoint string
	cache      *decisionCache
	prepared   rego.PreparedEvalQuery
}

const (
	// DefaultEntrypoint is used when EngineOptions.Entrypoint is empty.
	DefaultEntrypoint    = "channel/allow"
	defaultCacheCapacity = 256
)

// NewEngine parses and compiles the supplied modules.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	entry := strings.Trim(strings.TrimSpace(opts.Entrypoint), "/")
	if entry == "" {
		entry = DefaultEntrypoint
	}

	if len(opts.Modules) == 0 {
		return nil, errors.New("policy engine requires at least one rego module")
	}

	maxEntries := opts.CacheMaxEntries
	switch {
	case maxEntries == 0:
		maxEntries = defaultCacheCapacity
	case maxEntries < 0:
		maxEntries = 0
	}

	names := make([]string, 0, len(opts.Modules))
	for name := range opts.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	regoOpts := make([]func(*rego.Rego), 0, len(names)+1)
	regoOpts = append(regoOpts, rego.Query("data."+strings.ReplaceAll(entry, "/", ".")))
	for _, name := range names {
		module, err := ast.ParseModuleWithOpts(name, opts.Modules[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return nil, fmt.Errorf("parse rego module %q: %w", name, err)
		}
		regoOpts = append(regoOpts, rego.ParsedModule(module))
	}

	prepared, err := rego.New(regoOpts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile rego modules: %w", err)
	}

	engine := &Engine{
		entrypoint: entry,
		prepared:   prepared,
	}
	if maxEntries > 0 {
		engine.cache = newDecisionCache(maxEntries)
	}
	return engine, nil
}

// Entrypoint returns the decision path.
func (e *Engine) Entrypoint() string {
	return e.entrypoint
}

// Evaluate returns the decision for input. An undefined result denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	key := input.Channel + "\x00" + input.Method
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	results, err := e.prepared.Eval(ctx, rego.EvalInput(map[string]any{
		"channel": input.Channel,
		"method":  input.Method,
	}))
	if err != nil {
		return Decision{}, fmt.Errorf("opa decision: %w", err)
	}

	decision := Decision{Allow: false, Reason: "no decision at " + e.entrypoint}
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		decision, err = parseDecision(results[0].Expressions[0].Value)
		if err != nil {
			return Decision{}, err
		}
	}

	if e.cache != nil {
		e.cache.Add(key, decision)
	}
	return decision, nil
}

// FlushCache clears all cached decisions. Safe to call concurrently.
func (e *Engine) FlushCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

func parseDecision(value any) (Decision, error) {
	switch typed := value.(type) {
	case bool:
		d := Decision{Allow: typed}
		if !typed {
			d.Reason = domain.ErrPolicyDenied.Error()
		}
		return d, nil
	case map[string]any:
		allow, ok := typed["allow"].(bool)
		if !ok {
			return Decision{}, fmt.Errorf("opa decision: allow must be boolean, got %T", typed["allow"])
		}
		reason, _ := typed["reason"].(string)
		if !allow && reason == "" {
			reason = domain.ErrPolicyDenied.Error()
		}
		return Decision{Allow: allow, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("opa decision: unexpected result type %T", value)
	}
}

// LoadModules reads Rego files keyed by base name.
func LoadModules(paths []string) (map[string]string, error) {
	modules := make(map[string]string, len(paths))
	for _, path := range paths {
		// #nosec G304 -- policy paths are configured at startup
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy module: %w", err)
		}
		modules[filepath.Base(path)] = string(data)
	}
	return modules, nil
}

type decisionCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheItem struct {
	key   string
	value Decision
}

func newDecisionCache(capacity int) *decisionCache {
	return &decisionCache{
		max:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element, capacity),
	}
}

func (c *decisionCache) Get(key string) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return Decision{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(cacheItem).value, true
}

func (c *decisionCache) Add(key string, value Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = cacheItem{key: key, value: value}
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(cacheItem{key: key, value: value})
	if c.order.Len() <= c.max {
		return
	}

	if tail := c.order.Back(); tail != nil {
		c.order.Remove(tail)
		delete(c.entries, tail.Value.(cacheItem).key)
	}
}

func (c *decisionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *decisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element, c.max)
}
