package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flavor/pkg/domain"
)

const allowGetFlavor = `package channel

default allow := false

allow if input.method == "getFlavor"
`

const decisionObject = `package channel

default decision := {"allow": false, "reason": "only getFlavor is exposed"}

decision := {"allow": true} if input.method == "getFlavor"
`

func TestEngine_BooleanDecision(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, EngineOptions{Modules: map[string]string{"channel.rego": allowGetFlavor}})
	require.NoError(t, err)
	assert.Equal(t, DefaultEntrypoint, engine.Entrypoint())

	d, err := engine.Evaluate(ctx, Input{Channel: "c", Method: "getFlavor"})
	require.NoError(t, err)
	assert.True(t, d.Allow)

	d, err = engine.Evaluate(ctx, Input{Channel: "c", Method: "foo"})
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, domain.ErrPolicyDenied.Error(), d.Reason)
}

func TestEngine_ObjectDecision(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, EngineOptions{
		Entrypoint: "/channel/decision/",
		Modules:    map[string]string{"decision.rego": decisionObject},
	})
	require.NoError(t, err)

	d, err := engine.Evaluate(ctx, Input{Channel: "c", Method: "getFlavor"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Allow: true}, d)

	d, err = engine.Evaluate(ctx, Input{Channel: "c", Method: "setFlavor"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Allow: false, Reason: "only getFlavor is exposed"}, d)
}

func TestEngine_UndefinedDenies(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, EngineOptions{
		Entrypoint: "channel/missing",
		Modules:    map[string]string{"channel.rego": allowGetFlavor},
	})
	require.NoError(t, err)

	d, err := engine.Evaluate(ctx, Input{Channel: "c", Method: "getFlavor"})
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "no decision")
}

func TestEngine_UnexpectedResultType(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, EngineOptions{
		Entrypoint: "channel/allow",
		Modules:    map[string]string{"bad.rego": "package channel\n\nallow := \"yes\"\n"},
	})
	require.NoError(t, err)

	_, err = engine.Evaluate(ctx, Input{Channel: "c", Method: "getFlavor"})
	assert.Error(t, err)
}

func TestEngine_ConstructionErrors(t *testing.T) {
	_, err := NewEngine(context.Background(), EngineOptions{})
	assert.Error(t, err)

	_, err = NewEngine(context.Background(), EngineOptions{Modules: map[string]string{"x.rego": "not rego"}})
	assert.Error(t, err)
}

func TestEngine_CacheIsBounded(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, EngineOptions{
		Modules:         map[string]string{"channel.rego": allowGetFlavor},
		CacheMaxEntries: 2,
	})
	require.NoError(t, err)

	for _, m := range []string{"a", "b", "c", "getFlavor"} {
		_, err := engine.Evaluate(ctx, Input{Channel: "c", Method: m})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, engine.cache.Len())

	engine.FlushCache()
	assert.Equal(t, 0, engine.cache.Len())

	noCache, err := NewEngine(ctx, EngineOptions{
		Modules:         map[string]string{"channel.rego": allowGetFlavor},
		CacheMaxEntries: -1,
	})
	require.NoError(t, err)
	assert.Nil(t, noCache.cache)
	noCache.FlushCache()
}

func TestLoadModules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "channel.rego")
	require.NoError(t, os.WriteFile(path, []byte(allowGetFlavor), 0o600))

	modules, err := LoadModules([]string{path})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"channel.rego": allowGetFlavor}, modules)

	_, err = LoadModules([]string{filepath.Join(dir, "missing.rego")})
	assert.Error(t, err)
}
