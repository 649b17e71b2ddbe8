package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycengine/internal/catalog"
	"kycengine/internal/catalog/catalogtest"
	dErrors "kycengine/pkg/domain-errors"
)

func TestParse_ReferenceCatalog(t *testing.T) {
	s := catalogtest.Snapshot(t)

	assert.Equal(t, catalogtest.Version, s.Version())
	assert.Equal(t, "1.2", s.SchemaVersion())
	assert.True(t, s.IsLower("fr"))
	assert.True(t, s.IsLower(" GB "))
	assert.False(t, s.IsLower("XX"))
	assert.Equal(t, catalog.BandHigher, s.DefaultIfUnknown())
	assert.Equal(t, []int{1, 2, 3}, s.Phases())
	assert.Equal(t, 2, s.EnrichmentPhase())
	assert.Equal(t, 3, s.MaxRetryAttempts())

	rule, ok := s.MatrixRule(catalog.BandLower, "client", "medium")
	require.True(t, ok)
	assert.Equal(t, "DS-01", rule.DocumentSetCode)
	assert.Equal(t, "Standard", rule.FinalRiskProfile)

	set, ok := s.DocumentSet("DS-01")
	require.True(t, ok)
	assert.Len(t, set.Documents, 3)
}

func TestParse_YAMLMatchesJSON(t *testing.T) {
	fromJSON := catalogtest.Snapshot(t)
	fromYAML, err := catalog.Parse(catalogtest.YAML(), catalog.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Summary(), fromYAML.Summary())
	sic, ok := fromYAML.SICDefault("66220")
	require.True(t, ok, "numeric yaml keys must survive conversion")
	assert.Equal(t, "BROKER", sic.DefaultRole)
}

func TestParse_SchemaRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"missing rules matrix", func(doc map[string]any) { delete(doc, "rulesMatrix") }},
		{"unknown operator", func(doc map[string]any) {
			rules := catalogtest.Section(doc, "roleMapping", "fallbackRules")["rules"].([]any)
			rules[0].(map[string]any)["condition"] = map[string]any{"field": "role", "op": "approx", "value": "BROK"}
		}},
		{"unknown provider", func(doc map[string]any) {
			catalogtest.Section(doc, "enrichment")["experian"] = map[string]any{"enabled": true}
		}},
		{"bad band", func(doc map[string]any) {
			catalogtest.Section(doc, "countryRisk")["defaultIfUnknown"] = "MEDIUM"
		}},
		{"phase zero", func(doc map[string]any) {
			checks := catalogtest.Section(doc, "validationChecks")["entity"].([]any)
			checks[0].(map[string]any)["phase"] = 0
		}},
		{"fractional phase", func(doc map[string]any) {
			checks := catalogtest.Section(doc, "validationChecks")["entity"].([]any)
			checks[0].(map[string]any)["phase"] = 1.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse(catalogtest.Mutate(t, tt.mutate), catalog.FormatJSON)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeCatalogInvalid))
		})
	}
}

func TestParse_MalformedInput(t *testing.T) {
	_, err := catalog.Parse([]byte(`{"version": `), catalog.FormatJSON)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCatalogInvalid))

	_, err = catalog.Parse([]byte("version: [unterminated"), catalog.FormatYAML)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCatalogInvalid))

	trailing := append(catalogtest.JSON(), []byte(` {"version": "9.9.9"}`)...)
	_, err = catalog.Parse(trailing, catalog.FormatJSON)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCatalogInvalid), "a second document must not be ignored")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "rules.json")
	yamlPath := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(jsonPath, catalogtest.JSON(), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, catalogtest.YAML(), 0o600))

	for _, p := range []string{jsonPath, yamlPath} {
		s, err := catalog.LoadFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, catalogtest.Version, s.Version())
	}

	_, err := catalog.LoadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_Reader(t *testing.T) {
	s, err := catalog.Load(bytes.NewReader(catalogtest.JSON()), catalog.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, catalogtest.Version, s.Version())
}

func TestFileSource_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := catalog.FileSource{Path: "unused"}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, catalog.FormatYAML, catalog.FormatFromPath("rules.YAML"))
	assert.Equal(t, catalog.FormatYAML, catalog.FormatFromPath("rules.yml"))
	assert.Equal(t, catalog.FormatJSON, catalog.FormatFromPath("rules.json"))
	assert.Equal(t, catalog.FormatJSON, catalog.FormatFromPath("rules"))
}
