package flavor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flavor/pkg/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadResources_Formats(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">Personal Finance</string>
    <string name="flavor">prod</string>
</resources>`,
		"strings.yaml": "app_name: Personal Finance\nflavor: prod\nnested:\n  a: b\n",
		"strings.yml":  "flavor: prod\n",
		"strings.json": `{"app_name":"Personal Finance","flavor":"prod","list":[1,2]}`,
		"strings.toml": "app_name = \"Personal Finance\"\nflavor = \"prod\"\n\n[extra]\nkey = \"v\"\n",
	}

	for name, content := range files {
		path := writeFile(t, dir, name, content)

		res, err := LoadResources(path)
		require.NoError(t, err, name)
		assert.Equal(t, "prod", res["flavor"], name)
		assert.NotContains(t, res, "nested", name)
		assert.NotContains(t, res, "extra", name)
		assert.NotContains(t, res, "list", name)

		assert.Equal(t, domain.FlavorProd, Resolve(context.Background(), Resource(path, "flavor")), name)
	}
}

func TestParseResources_NonStringScalars(t *testing.T) {
	res, err := ParseResources(".yaml", []byte("build: 42\nenabled: true\nempty: null\n"))
	require.NoError(t, err)
	assert.Equal(t, Resources{"build": "42", "enabled": "true"}, res)
}

func TestParseResources_Errors(t *testing.T) {
	_, err := ParseResources(".ini", []byte("flavor=prod"))
	assert.Error(t, err)

	_, err = ParseResources(".json", []byte("{"))
	assert.Error(t, err)

	_, err = ParseResources(".xml", []byte("<resources><string"))
	assert.Error(t, err)
}

func TestResource_AbsentCases(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	missingFile := Resource(filepath.Join(dir, "nope.xml"), "flavor")
	_, err := missingFile.Lookup(ctx)
	assert.ErrorIs(t, err, domain.ErrSignalAbsent)
	assert.Equal(t, domain.FlavorDev, Resolve(ctx, missingFile))

	noKey := Resource(writeFile(t, dir, "other.xml", `<resources><string name="app_name">x</string></resources>`), "flavor")
	_, err = noKey.Lookup(ctx)
	assert.ErrorIs(t, err, domain.ErrSignalAbsent)
	assert.Equal(t, domain.FlavorDev, Resolve(ctx, noKey))

	empty := Resource(writeFile(t, dir, "empty.xml", `<resources><string name="flavor"></string></resources>`), "")
	value, err := empty.Lookup(ctx)
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.Equal(t, domain.FlavorDev, Resolve(ctx, empty))

	garbage := Resource(writeFile(t, dir, "bad.json", `not json`), "flavor")
	assert.Equal(t, domain.FlavorDev, Resolve(ctx, garbage))
}

func TestResource_ReadsFreshOnEveryLookup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flavor.yaml", "flavor: stg\n")
	p := Resource(path, "flavor")

	assert.Equal(t, domain.FlavorStg, Resolve(context.Background(), p))
	writeFile(t, dir, "flavor.yaml", "flavor: prod\n")
	assert.Equal(t, domain.FlavorProd, Resolve(context.Background(), p))
}
