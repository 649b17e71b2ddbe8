// Package catalogtest provides the reference rule catalog used across tests.
package catalogtest

import (
	_ "embed"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"kycengine/internal/catalog"
)

//go:embed testdata/business_rules.json
var rulesJSON []byte

//go:embed testdata/business_rules.yaml
var rulesYAML []byte

// Version of the reference catalog.
const Version = "2.4.0"

// JSON returns a copy of the reference catalog artifact.
func JSON() []byte { return append([]byte(nil), rulesJSON...) }

// YAML returns a copy of the YAML rendering of the reference catalog.
func YAML() []byte { return append([]byte(nil), rulesYAML...) }

// Snapshot parses the reference catalog.
func Snapshot(t testing.TB) *catalog.Snapshot {
	t.Helper()
	s, err := catalog.Parse(rulesJSON, catalog.FormatJSON)
	require.NoError(t, err)
	return s
}

// Mutate decodes the reference catalog into generic JSON, applies fn and
// re-encodes it. Use it to build invalid or newer variants.
func Mutate(t testing.TB, fn func(doc map[string]any)) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rulesJSON, &doc))
	fn(doc)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

// WithVersion returns a parsed copy of the reference catalog at version.
func WithVersion(t testing.TB, version string) *catalog.Snapshot {
	t.Helper()
	raw := Mutate(t, func(doc map[string]any) { doc["version"] = version })
	s, err := catalog.Parse(raw, catalog.FormatJSON)
	require.NoError(t, err)
	return s
}

// Section returns the named object of a decoded catalog for in-place edits.
func Section(doc map[string]any, path ...string) map[string]any {
	cur := doc
	for _, p := range path {
		cur = cur[p].(map[string]any)
	}
	return cur
}
