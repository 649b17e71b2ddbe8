package catalog

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"kycengine/internal/predicate"
	kstrings "kycengine/pkg/platform/strings"
)

// DefaultEnrichmentPhase is used when the catalog does not declare one.
const DefaultEnrichmentPhase = 2

// Snapshot is an immutable, compiled catalog version. All lookups are
// read-only and safe for concurrent callers; a new catalog version produces
// a new Snapshot rather than mutating this one.
type Snapshot struct {
	version *semver.Version
	doc     Catalog

	lower      map[string]struct{}
	mappings   map[string]RoleMappingEntry
	fallbacks  []CompiledFallback
	sic        map[string]SICEntry
	matrix     map[matrixKey]MatrixRule
	docSets    map[string]DocumentSet
	checks     map[int][]CompiledCheck
	phases     []int
	flags      []CompiledFlag
	enrichment map[string]CompiledPolicy
	toba       []TobaAgreement
	questions  map[string]string
}

// CompiledFallback is a fallback rule with its condition ready to evaluate.
type CompiledFallback struct {
	Index int
	Rule  FallbackRule
	When  *predicate.Predicate
}

// CompiledCheck is a validation check with compiled conditions.
type CompiledCheck struct {
	Group   string
	Check   ValidationCheck
	Pass    *predicate.Predicate
	Fail    *predicate.Predicate
	Applies *predicate.Predicate
}

type CompiledFlag struct {
	Flag ClassificationFlag
	When *predicate.Predicate
}

type CompiledPolicy struct {
	Enabled    bool
	Applicable *predicate.Predicate
}

type matrixKey struct {
	band, main, sub string
}

func newMatrixKey(band RiskBand, main, sub string) matrixKey {
	return matrixKey{
		band: kstrings.NormalizeCode(string(band)),
		main: kstrings.NormalizeCode(main),
		sub:  kstrings.NormalizeCode(sub),
	}
}

// Version is the catalog's semantic version string as declared.
func (s *Snapshot) Version() string { return s.doc.Version }

// SemVer is the parsed catalog version used for ordering.
func (s *Snapshot) SemVer() *semver.Version { return s.version }

func (s *Snapshot) SchemaVersion() string { return s.doc.SchemaVersion }

func (s *Snapshot) LastUpdated() string { return s.doc.LastUpdated }

// IsLower reports whether country is in the LOWER set. Exact match after
// trimming and upper-casing; no fuzzy matching.
func (s *Snapshot) IsLower(country string) bool {
	_, ok := s.lower[kstrings.NormalizeCode(country)]
	return ok
}

func (s *Snapshot) DefaultIfUnknown() RiskBand { return s.doc.CountryRisk.DefaultIfUnknown }

// DirectRole looks up a declared role string in the direct mapping table.
func (s *Snapshot) DirectRole(role string) (RoleMappingEntry, bool) {
	e, ok := s.mappings[kstrings.NormalizeCode(role)]
	return e, ok
}

// Fallbacks returns the fallback rules in declared order.
func (s *Snapshot) Fallbacks() []CompiledFallback { return s.fallbacks }

func (s *Snapshot) SICDefault(code string) (SICEntry, bool) {
	e, ok := s.sic[strings.TrimSpace(code)]
	return e, ok
}

func (s *Snapshot) MatrixRule(band RiskBand, roleMain, roleSub string) (MatrixRule, bool) {
	r, ok := s.matrix[newMatrixKey(band, roleMain, roleSub)]
	return r, ok
}

func (s *Snapshot) DocumentSet(code string) (DocumentSet, bool) {
	d, ok := s.docSets[strings.TrimSpace(code)]
	return d, ok
}

// Phases returns the validation phases present in the catalog, ascending.
func (s *Snapshot) Phases() []int { return s.phases }

// ChecksForPhase returns the checks of one phase ordered by check code.
func (s *Snapshot) ChecksForPhase(phase int) []CompiledCheck { return s.checks[phase] }

// EnrichmentPhase is the first phase evaluated after provider enrichment.
func (s *Snapshot) EnrichmentPhase() int {
	if p := s.doc.WorkflowMetadata.EnrichmentPhase; p > 0 {
		return p
	}
	return DefaultEnrichmentPhase
}

// MaxRetryAttempts is the catalog override for provider attempts, zero when unset.
func (s *Snapshot) MaxRetryAttempts() int { return s.doc.WorkflowMetadata.MaxRetryAttempts }

func (s *Snapshot) Flags() []CompiledFlag { return s.flags }

// EnrichmentPolicy returns the applicability policy for provider. Providers
// absent from the catalog are not applicable.
func (s *Snapshot) EnrichmentPolicy(provider string) (CompiledPolicy, bool) {
	p, ok := s.enrichment[provider]
	return p, ok
}

// Agreements returns the downstream agreements for roleMain in country,
// including jurisdiction-wide "*" entries, in catalog order.
func (s *Snapshot) Agreements(roleMain, country string) []TobaAgreement {
	main := kstrings.NormalizeCode(roleMain)
	ctry := kstrings.NormalizeCode(country)
	var out []TobaAgreement
	for _, a := range s.toba {
		if kstrings.NormalizeCode(a.RoleMain) != main {
			continue
		}
		j := kstrings.NormalizeCode(a.Jurisdiction)
		if j == "*" || j == ctry {
			out = append(out, a)
		}
	}
	return out
}

func (s *Snapshot) Questionnaire(roleSub string) (string, bool) {
	q, ok := s.questions[kstrings.NormalizeCode(roleSub)]
	return q, ok
}

// Summary describes the snapshot for operators.
type Summary struct {
	Version          string   `json:"version"`
	SchemaVersion    string   `json:"schemaVersion"`
	LastUpdated      string   `json:"lastUpdated,omitempty"`
	Description      string   `json:"description,omitempty"`
	LowerCountries   int      `json:"lowerCountries"`
	DefaultIfUnknown RiskBand `json:"defaultIfUnknown"`
	RoleMappings     int      `json:"roleMappings"`
	FallbackRules    int      `json:"fallbackRules"`
	MatrixRules      int      `json:"matrixRules"`
	DocumentSets     []string `json:"documentSets"`
	ValidationChecks int      `json:"validationChecks"`
	Phases           []int    `json:"phases"`
	EnrichmentPhase  int      `json:"enrichmentPhase"`
}

func (s *Snapshot) Summary() Summary {
	codes := make([]string, 0, len(s.docSets))
	for code := range s.docSets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	checks := 0
	for _, cs := range s.checks {
		checks += len(cs)
	}
	return Summary{
		Version:          s.doc.Version,
		SchemaVersion:    s.doc.SchemaVersion,
		LastUpdated:      s.doc.LastUpdated,
		Description:      s.doc.Description,
		LowerCountries:   len(s.lower),
		DefaultIfUnknown: s.doc.CountryRisk.DefaultIfUnknown,
		RoleMappings:     len(s.mappings),
		FallbackRules:    len(s.fallbacks),
		MatrixRules:      len(s.matrix),
		DocumentSets:     codes,
		ValidationChecks: checks,
		Phases:           append([]int(nil), s.phases...),
		EnrichmentPhase:  s.EnrichmentPhase(),
	}
}
