package flavor

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/polisai/polis-flavor/pkg/domain"
)

// DefaultResourceName is the string resource holding the flavor.
const DefaultResourceName = "flavor"

// Resources is a table of named string resources.
type Resources map[string]string

// androidResources mirrors res/values/strings.xml.
type androidResources struct {
	XMLName xml.Name `xml:"resources"`
	Strings []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"string"`
}

// LoadResources reads a string resource file. The format follows the
// extension: .xml (Android strings.xml), .yaml/.yml, .json or .toml.
// Non-scalar entries are ignored.
func LoadResources(path string) (Resources, error) {
	// #nosec G304 -- resource path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource file: %w", err)
	}
	return ParseResources(filepath.Ext(path), data)
}

// ParseResources decodes data in the format selected by ext.
func ParseResources(ext string, data []byte) (Resources, error) {
	switch strings.ToLower(ext) {
	case ".xml":
		var doc androidResources
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse xml resources: %w", err)
		}
		out := make(Resources, len(doc.Strings))
		for _, s := range doc.Strings {
			if s.Name != "" {
				out[s.Name] = s.Value
			}
		}
		return out, nil
	case ".yaml", ".yml":
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml resources: %w", err)
		}
		return scalars(raw), nil
	case ".json":
		raw := map[string]any{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json resources: %w", err)
		}
		return scalars(raw), nil
	case ".toml":
		raw := map[string]any{}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml resources: %w", err)
		}
		return scalars(raw), nil
	default:
		return nil, fmt.Errorf("unsupported resource format %q", ext)
	}
}

func scalars(raw map[string]any) Resources {
	out := make(Resources, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil, map[string]any, []any:
			continue
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// Lookup returns the resource name, reporting a missing entry as absent.
func (r Resources) Lookup(source, name string) (string, error) {
	value, ok := r[name]
	if !ok {
		return "", domain.Absent(source, fmt.Errorf("no string resource %q", name))
	}
	return value, nil
}

// Resource reads resource name from the file at path on every lookup. A
// missing file, unreadable content or a missing entry are absent signals.
func Resource(path, name string) Provider {
	if name == "" {
		name = DefaultResourceName
	}
	source := "resource:" + filepath.Base(path)
	return Func(source, func(context.Context) (string, error) {
		res, err := LoadResources(path)
		if err != nil {
			return "", domain.Absent(source, err)
		}
		return res.Lookup(source, name)
	})
}
