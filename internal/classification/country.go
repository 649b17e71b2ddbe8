package classification

import "kycengine/internal/catalog"

// CountryRisk returns the risk band for country. Countries outside the LOWER
// set, including empty or malformed input, take the catalog default.
func CountryRisk(s *catalog.Snapshot, country string) catalog.RiskBand {
	if s.IsLower(country) {
		return catalog.BandLower
	}
	return s.DefaultIfUnknown()
}
