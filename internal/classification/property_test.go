package classification

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"kycengine/internal/catalog"
	"kycengine/internal/catalog/catalogtest"
)

// Property: countries outside LOWER always take defaultIfUnknown.
func TestCountryRisk_DefaultForUnlisted(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("unlisted countries take the default band", prop.ForAll(
		func(country string) bool {
			if snap.IsLower(country) {
				return CountryRisk(snap, country) == catalog.BandLower
			}
			return CountryRisk(snap, country) == snap.DefaultIfUnknown()
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Property: ResolveMatrix(k) == ResolveMatrix(k) for any key against one snapshot.
func TestResolveMatrix_Deterministic(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("matrix lookup is a pure function", prop.ForAll(
		func(band, main, sub string) bool {
			p1, err1 := ResolveMatrix(snap, catalog.RiskBand(band), main, sub)
			p2, err2 := ResolveMatrix(snap, catalog.RiskBand(band), main, sub)
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			return reflect.DeepEqual(p1, p2)
		},
		gen.OneConstOf("LOWER", "HIGHER", "lower", "MEDIUM"),
		gen.OneConstOf("CLIENT", "BROKER", "INTRODUCER", "SUPPLIER", "INSURER", "client", "UNKNOWN"),
		gen.OneConstOf("Small", "Medium", "Large", "Wholesale", "Retail", "Standard", "Carrier", ""),
	))

	properties.TestingRun(t)
}

// Property: every declared document set assembles to its declared length.
func TestDocuments_LengthMatchesCatalog(t *testing.T) {
	snap := catalogtest.Snapshot(t)
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("assembled list mirrors the catalog", prop.ForAll(
		func(code string) bool {
			set, ok := snap.DocumentSet(code)
			docs, err := Documents(snap, code)
			if !ok {
				return err != nil
			}
			return err == nil && len(docs) == len(set.Documents) && len(docs) > 0
		},
		gen.OneConstOf("DS-01", "DS-02", "DS-03", "DS-04", ""),
	))

	properties.TestingRun(t)
}
