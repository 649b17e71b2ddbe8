package classification

import (
	"kycengine/internal/catalog"
	dErrors "kycengine/pkg/domain-errors"
)

// Profile is the outcome of a rules matrix lookup.
type Profile struct {
	FinalRiskProfile string `json:"finalRiskProfile"`
	DocumentSetCode  string `json:"documentSetCode"`
	CDDLevel         string `json:"cddLevel"`
}

// ResolveMatrix looks up the exact (band, roleMain, roleSub) key. A miss is
// never defaulted.
func ResolveMatrix(s *catalog.Snapshot, band catalog.RiskBand, roleMain, roleSub string) (Profile, error) {
	rule, ok := s.MatrixRule(band, roleMain, roleSub)
	if !ok {
		return Profile{}, dErrors.Newf(dErrors.CodeNoMatrixRule,
			"no rules matrix entry for (%s, %s, %s); manual classification required", band, roleMain, roleSub)
	}
	return Profile{
		FinalRiskProfile: rule.FinalRiskProfile,
		DocumentSetCode:  rule.DocumentSetCode,
		CDDLevel:         rule.CDDLevel,
	}, nil
}
