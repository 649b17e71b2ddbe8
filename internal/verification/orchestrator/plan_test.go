package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycengine/internal/catalog"
	"kycengine/internal/catalog/catalogtest"
	"kycengine/internal/predicate"
	"kycengine/internal/verification/models"
	"kycengine/internal/verification/orchestrator"
)

func TestPlan(t *testing.T) {
	snap := catalogtest.Snapshot(t)

	tests := []struct {
		name   string
		fields predicate.Fields
		want   []models.Provider
	}{
		{
			name:   "uk broker with registration number",
			fields: predicate.Fields{"country": "GB", "roleMain": "BROKER", "registrationNumber": "01234567"},
			want:   models.AllProviders,
		},
		{
			name:   "uk client without registration number",
			fields: predicate.Fields{"country": "GB", "roleMain": "CLIENT"},
			want:   []models.Provider{models.ProviderLexisNexis},
		},
		{
			name:   "french broker with registration number",
			fields: predicate.Fields{"country": "FR", "roleMain": "BROKER", "registrationNumber": "552100554"},
			want:   []models.Provider{models.ProviderDNB, models.ProviderLexisNexis},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := orchestrator.Plan(snap, tt.fields)
			assert.Len(t, plan, len(models.AllProviders))
			assert.Equal(t, tt.want, orchestrator.Applicable(plan))
		})
	}
}

func TestPlan_DisabledProvider(t *testing.T) {
	raw := catalogtest.Mutate(t, func(doc map[string]any) {
		catalogtest.Section(doc, "enrichment", "lexisNexis")["enabled"] = false
	})
	snap := mustParse(t, raw)

	plan := orchestrator.Plan(snap, predicate.Fields{"country": "FR"})
	assert.False(t, plan[models.ProviderLexisNexis])
	assert.Empty(t, orchestrator.Applicable(plan))
}

func mustParse(t *testing.T, raw []byte) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.Parse(raw, catalog.FormatJSON)
	require.NoError(t, err)
	return snap
}
