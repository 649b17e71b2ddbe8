// Package validation evaluates the catalog's declarative checks against a
// case, phase by phase.
package validation

import (
	"kycengine/internal/catalog"
	"kycengine/internal/predicate"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass          Status = "pass"
	StatusFail          Status = "fail"
	StatusNotApplicable Status = "not_applicable"
)

// Outcome is one evaluated check.
type Outcome struct {
	CheckCode   string `json:"checkCode"`
	Group       string `json:"group"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Phase       int    `json:"phase"`
	Status      Status `json:"status"`
}

// Defect is a failing check attached to a case.
type Defect struct {
	CheckCode   string `json:"checkCode"`
	Description string `json:"description,omitempty"`
	Phase       int    `json:"phase"`
	// Condition is the pass condition that did not hold, for reviewers.
	Condition string `json:"condition"`
}

// Report is the result of running a range of phases.
type Report struct {
	CatalogVersion string    `json:"catalogVersion"`
	Outcomes       []Outcome `json:"outcomes"`
	// Reached is the highest phase whose checks were all non-failing.
	Reached int `json:"reachedPhase"`
	// BlockedAt is the phase that failed, zero when nothing failed.
	BlockedAt int      `json:"blockedAt,omitempty"`
	Defects   []Defect `json:"defects,omitempty"`
}

// Passed reports whether every evaluated phase was non-failing.
func (r Report) Passed() bool { return r.BlockedAt == 0 }

// Evaluate decides a single check. Non-active checks and checks whose
// appliesWhen is false are not applicable. Otherwise the pass condition
// decides; when it does not hold the check fails unless a fail condition is
// declared and also does not hold.
func Evaluate(c catalog.CompiledCheck, fields predicate.Fields) Status {
	if c.Check.Status != catalog.CheckActive {
		return StatusNotApplicable
	}
	if c.Applies != nil && !c.Applies.Eval(fields) {
		return StatusNotApplicable
	}
	if c.Pass.Eval(fields) {
		return StatusPass
	}
	if c.Fail == nil || c.Fail.Eval(fields) {
		return StatusFail
	}
	return StatusNotApplicable
}

// EvaluatePhase runs every check of phase. Checks are independent, so the
// result does not depend on their order.
func EvaluatePhase(s *catalog.Snapshot, phase int, fields predicate.Fields) []Outcome {
	checks := s.ChecksForPhase(phase)
	out := make([]Outcome, 0, len(checks))
	for _, c := range checks {
		out = append(out, Outcome{
			CheckCode:   c.Check.CheckCode,
			Group:       c.Group,
			Description: c.Check.Description,
			Source:      c.Check.Source,
			Phase:       phase,
			Status:      Evaluate(c, fields),
		})
	}
	return out
}

// Run evaluates phases from..until inclusive in ascending order and stops at
// the first phase with a failing check. until <= 0 means every phase.
func Run(s *catalog.Snapshot, fields predicate.Fields, from, until int) Report {
	r := Report{CatalogVersion: s.Version(), Reached: from - 1}
	if r.Reached < 0 {
		r.Reached = 0
	}
	for _, phase := range s.Phases() {
		if phase < from || (until > 0 && phase > until) {
			continue
		}
		outcomes := EvaluatePhase(s, phase, fields)
		r.Outcomes = append(r.Outcomes, outcomes...)
		for _, o := range outcomes {
			if o.Status == StatusFail {
				r.Defects = append(r.Defects, defectFor(s, o))
			}
		}
		if len(r.Defects) > 0 {
			r.BlockedAt = phase
			return r
		}
		r.Reached = phase
	}
	return r
}

// PreEnrichment runs the gates that must pass before providers are called.
// With enrichment at phase 1 there are no gates and the report passes empty.
func PreEnrichment(s *catalog.Snapshot, fields predicate.Fields) Report {
	if s.EnrichmentPhase() <= 1 {
		return Report{CatalogVersion: s.Version()}
	}
	return Run(s, fields, 1, s.EnrichmentPhase()-1)
}

// PostEnrichment runs the checks that read enrichment results.
func PostEnrichment(s *catalog.Snapshot, fields predicate.Fields) Report {
	return Run(s, fields, s.EnrichmentPhase(), 0)
}

func defectFor(s *catalog.Snapshot, o Outcome) Defect {
	d := Defect{CheckCode: o.CheckCode, Description: o.Description, Phase: o.Phase}
	for _, c := range s.ChecksForPhase(o.Phase) {
		if c.Check.CheckCode == o.CheckCode {
			d.Condition = c.Pass.String()
			break
		}
	}
	return d
}
