package orchestrator

import (
	"kycengine/internal/catalog"
	"kycengine/internal/predicate"
	"kycengine/internal/verification/models"
)

// Plan decides once, before dispatch, which providers apply to a case. A
// provider is applicable when the catalog enables it and its applicability
// condition holds for fields. The result covers every known provider.
func Plan(s *catalog.Snapshot, fields predicate.Fields) map[models.Provider]bool {
	out := make(map[models.Provider]bool, len(models.AllProviders))
	for _, p := range models.AllProviders {
		policy, ok := s.EnrichmentPolicy(string(p))
		out[p] = ok && policy.Enabled && policy.Applicable.Eval(fields)
	}
	return out
}

// Applicable lists the providers Plan selected, in stable order.
func Applicable(plan map[models.Provider]bool) []models.Provider {
	var out []models.Provider
	for _, p := range models.AllProviders {
		if plan[p] {
			out = append(out, p)
		}
	}
	return out
}
