package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"kycengine/internal/predicate"
	vmodels "kycengine/internal/verification/models"
	dErrors "kycengine/pkg/domain-errors"
	kstrings "kycengine/pkg/platform/strings"
)

// IntegrityError lists every violation found in a catalog artifact. A
// catalog with any violation is rejected as a whole.
type IntegrityError struct {
	Version    string
	Violations []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("catalog %s failed integrity checks: %s", e.Version, strings.Join(e.Violations, "; "))
}

// Build checks doc's referential integrity and compiles it into a Snapshot.
func Build(doc Catalog) (*Snapshot, error) {
	b := &builder{doc: doc}
	s := b.build()
	if len(b.violations) > 0 {
		return nil, dErrors.Wrap(&IntegrityError{Version: doc.Version, Violations: b.violations},
			dErrors.CodeCatalogInvalid, "catalog rejected")
	}
	return s, nil
}

type builder struct {
	doc        Catalog
	violations []string
}

func (b *builder) fail(format string, args ...any) {
	b.violations = append(b.violations, fmt.Sprintf(format, args...))
}

func (b *builder) compile(path string, e predicate.Expr) *predicate.Predicate {
	p, err := predicate.Compile(e)
	if err != nil {
		b.fail("%s: %v", path, err)
		return nil
	}
	return p
}

func (b *builder) compileOptional(path string, e *predicate.Expr) *predicate.Predicate {
	if e == nil {
		return nil
	}
	return b.compile(path, *e)
}

func (b *builder) build() *Snapshot {
	doc := b.doc
	s := &Snapshot{doc: doc}

	v, err := semver.NewVersion(doc.Version)
	if err != nil {
		b.fail("version %q is not a semantic version", doc.Version)
	}
	s.version = v
	if strings.TrimSpace(doc.SchemaVersion) == "" {
		b.fail("schemaVersion is required")
	}

	b.buildCountryRisk(s)
	roleMains := b.buildRoleTypes()
	b.buildRoleMapping(s, roleMains)
	b.buildDocumentSets(s)
	b.buildMatrix(s)
	b.buildChecks(s)
	b.buildFlags(s)
	b.buildEnrichment(s)

	s.toba = append([]TobaAgreement(nil), doc.TobaCatalog.Agreements...)
	s.questions = make(map[string]string, len(doc.QuestionnaireMapping.Mappings))
	for i, q := range doc.QuestionnaireMapping.Mappings {
		key := kstrings.NormalizeCode(q.RoleSub)
		if _, dup := s.questions[key]; dup {
			b.fail("questionnaireMapping.mappings[%d]: duplicate roleSub %q", i, q.RoleSub)
		}
		s.questions[key] = q.QuestionnaireCode
	}
	return s
}

func (b *builder) buildCountryRisk(s *Snapshot) {
	cr := b.doc.CountryRisk
	if cr.DefaultIfUnknown != BandLower && cr.DefaultIfUnknown != BandHigher {
		b.fail("countryRisk.defaultIfUnknown must be LOWER or HIGHER, got %q", cr.DefaultIfUnknown)
	}
	for _, dup := range kstrings.Duplicates(cr.Lower) {
		b.fail("countryRisk.LOWER: duplicate country %q", dup)
	}
	codes := kstrings.DedupeCodes(cr.Lower)
	s.lower = make(map[string]struct{}, len(codes))
	for _, c := range codes {
		s.lower[c] = struct{}{}
	}
}

func (b *builder) buildRoleTypes() map[string]struct{} {
	mains := make(map[string]struct{})
	seen := make(map[string]struct{})
	for i, rt := range b.doc.RoleTypes.Roles {
		main := kstrings.NormalizeCode(rt.RoleMain)
		if main == "" {
			b.fail("roleTypes.roles[%d]: roleMain is required", i)
			continue
		}
		pair := main + "/" + kstrings.NormalizeCode(rt.RoleSub)
		if _, dup := seen[pair]; dup {
			b.fail("roleTypes.roles[%d]: duplicate role type %s", i, pair)
		}
		seen[pair] = struct{}{}
		mains[main] = struct{}{}
	}
	return mains
}

func (b *builder) buildRoleMapping(s *Snapshot, roleMains map[string]struct{}) {
	rm := b.doc.RoleMapping
	knownMain := func(path, main string) {
		if _, ok := roleMains[kstrings.NormalizeCode(main)]; !ok {
			b.fail("%s: role %q is not declared in roleTypes", path, main)
		}
	}

	s.mappings = make(map[string]RoleMappingEntry, len(rm.Mappings))
	for declared, entry := range rm.Mappings {
		key := kstrings.NormalizeCode(declared)
		if _, dup := s.mappings[key]; dup {
			b.fail("roleMapping.mappings: %q collides with another key after normalization", declared)
		}
		knownMain("roleMapping.mappings."+declared, entry.RoleMain)
		s.mappings[key] = entry
	}

	s.fallbacks = make([]CompiledFallback, 0, len(rm.FallbackRules.Rules))
	for i, rule := range rm.FallbackRules.Rules {
		path := fmt.Sprintf("roleMapping.fallbackRules.rules[%d]", i)
		switch rule.Confidence {
		case ConfidenceExact, ConfidencePartial, ConfidenceDefault:
		default:
			b.fail("%s: confidence must be exact, partial or default, got %q", path, rule.Confidence)
		}
		knownMain(path, rule.Result)
		s.fallbacks = append(s.fallbacks, CompiledFallback{
			Index: i,
			Rule:  rule,
			When:  b.compile(path+".condition", rule.Condition),
		})
	}

	s.sic = make(map[string]SICEntry, len(rm.SICCodeMapping))
	for code, entry := range rm.SICCodeMapping {
		knownMain("roleMapping.sicCodeMapping."+code, entry.DefaultRole)
		s.sic[strings.TrimSpace(code)] = entry
	}
}

func (b *builder) buildDocumentSets(s *Snapshot) {
	s.docSets = make(map[string]DocumentSet, len(b.doc.DocumentSets))
	for code, set := range b.doc.DocumentSets {
		if len(set.Documents) == 0 {
			b.fail("documentSets.%s: document list is empty", code)
		}
		s.docSets[strings.TrimSpace(code)] = set
	}
}

func (b *builder) buildMatrix(s *Snapshot) {
	s.matrix = make(map[matrixKey]MatrixRule, len(b.doc.RulesMatrix.Rules))
	for i, r := range b.doc.RulesMatrix.Rules {
		path := fmt.Sprintf("rulesMatrix.rules[%d]", i)
		if r.CountryRisk != BandLower && r.CountryRisk != BandHigher {
			b.fail("%s: countryRisk must be LOWER or HIGHER, got %q", path, r.CountryRisk)
		}
		key := newMatrixKey(r.CountryRisk, r.RoleMain, r.RoleSub)
		if _, dup := s.matrix[key]; dup {
			b.fail("%s: duplicate key (%s, %s, %s)", path, r.CountryRisk, r.RoleMain, r.RoleSub)
			continue
		}
		if _, ok := s.docSets[strings.TrimSpace(r.DocumentSetCode)]; !ok {
			b.fail("%s: documentSetCode %q does not exist in documentSets", path, r.DocumentSetCode)
		}
		s.matrix[key] = r
	}
}

func (b *builder) buildChecks(s *Snapshot) {
	s.checks = make(map[int][]CompiledCheck)
	codes := make(map[string]struct{})
	groups := make([]string, 0, len(b.doc.ValidationChecks))
	for g := range b.doc.ValidationChecks {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		for i, c := range b.doc.ValidationChecks[group] {
			path := fmt.Sprintf("validationChecks.%s[%d]", group, i)
			if c.CheckCode == "" {
				b.fail("%s: checkCode is required", path)
				continue
			}
			if _, dup := codes[c.CheckCode]; dup {
				b.fail("%s: duplicate checkCode %q", path, c.CheckCode)
			}
			codes[c.CheckCode] = struct{}{}
			if c.Phase < 1 {
				b.fail("%s: phase must be >= 1", path)
			}
			s.checks[c.Phase] = append(s.checks[c.Phase], CompiledCheck{
				Group:   group,
				Check:   c,
				Pass:    b.compile(path+".passCondition", c.PassCondition),
				Fail:    b.compileOptional(path+".failCondition", c.FailCondition),
				Applies: b.compileOptional(path+".appliesWhen", c.AppliesWhen),
			})
		}
	}
	for phase, cs := range s.checks {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Check.CheckCode < cs[j].Check.CheckCode })
		s.phases = append(s.phases, phase)
	}
	sort.Ints(s.phases)
}

func (b *builder) buildFlags(s *Snapshot) {
	for i, f := range b.doc.ClientClassificationFlags.Flags {
		s.flags = append(s.flags, CompiledFlag{
			Flag: f,
			When: b.compileOptional(fmt.Sprintf("clientClassificationFlags.flags[%d].when", i), f.When),
		})
	}
}

func (b *builder) buildEnrichment(s *Snapshot) {
	s.enrichment = make(map[string]CompiledPolicy, len(b.doc.Enrichment))
	providers := make([]string, 0, len(b.doc.Enrichment))
	for provider := range b.doc.Enrichment {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	for _, provider := range providers {
		if !slices.Contains(vmodels.AllProviders, vmodels.Provider(provider)) {
			b.fail("enrichment: unknown provider %q", provider)
			continue
		}
		p := b.doc.Enrichment[provider]
		s.enrichment[provider] = CompiledPolicy{
			Enabled:    p.Enabled,
			Applicable: b.compileOptional("enrichment."+provider+".applicableWhen", p.ApplicableWhen),
		}
	}
}
