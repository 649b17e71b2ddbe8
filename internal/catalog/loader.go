package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	dErrors "kycengine/pkg/domain-errors"
)

// Format is the serialization of a catalog artifact.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed schema/catalog.schema.json
var schemaJSON string

const schemaURL = "https://kycengine.local/schema/catalog.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("catalog schema load failed: %w", err)
	}
	return c.Compile(schemaURL)
})

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes raw in the given format, validates it against the catalog
// schema and builds a Snapshot. Every failure carries CodeCatalogInvalid.
func Parse(raw []byte, format Format) (*Snapshot, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(raw)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeCatalogInvalid, "catalog is not valid YAML")
		}
		raw = converted
	}

	generic, err := decodeGeneric(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCatalogInvalid, "catalog is not valid JSON")
	}
	schema, err := compiledSchema()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "catalog schema unavailable")
	}
	if err := schema.Validate(generic); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCatalogInvalid, "catalog does not match schema")
	}

	var doc Catalog
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCatalogInvalid, "catalog decode failed")
	}
	return Build(doc)
}

// decodeGeneric decodes raw into the untyped form the schema validator
// expects. Numbers stay json.Number so integer keywords validate exactly.
func decodeGeneric(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after the catalog document")
	}
	return generic, nil
}

// Load reads a whole artifact from r.
func Load(r io.Reader, format Format) (*Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw, format)
}

// LoadFile reads the artifact at path, inferring the format from its extension.
func LoadFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw, FormatFromPath(path))
}

// Source produces complete catalog snapshots on demand.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// FileSource re-reads a catalog file on every Load.
type FileSource struct {
	Path string
}

func (f FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.Path)
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(stringKeys(v))
}

// stringKeys converts yaml maps with non-string keys (such as numeric SIC
// codes) into JSON-compatible maps.
func stringKeys(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = stringKeys(val)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range x {
			x[i] = stringKeys(val)
		}
		return x
	default:
		return v
	}
}
