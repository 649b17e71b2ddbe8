// Package classification derives a case's risk profile, document set and CDD
// level from its declared attributes.
//
// Every step reads one immutable catalog snapshot, captured once per call, so
// a catalog reload mid-flight never mixes rules from two versions:
//
//	country ──► risk band ─┐
//	                       ├─► rules matrix ──► document set
//	role/SIC ──► role ─────┘
package classification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kycengine/internal/catalog"
	"kycengine/internal/classification/metrics"
	"kycengine/internal/predicate"
	dErrors "kycengine/pkg/domain-errors"
)

// Input is the subset of a case that drives classification.
type Input struct {
	Country string
	Role    string
	SubType string
	SICCode string
	// Fields is the flat entity view; fallback rules and flags read it.
	Fields predicate.Fields
}

// Result is a complete classification made against one catalog version.
type Result struct {
	CatalogVersion string           `json:"catalogVersion"`
	CountryRisk    catalog.RiskBand `json:"countryRisk"`
	Role
	Profile
	Documents         []catalog.DocumentRequirement `json:"documents"`
	Agreements        []string                      `json:"tobaCodes,omitempty"`
	QuestionnaireCode string                        `json:"questionnaireCode,omitempty"`
	Flags             []string                      `json:"flags,omitempty"`
}

// Classify runs the full pipeline against s without alerting side effects.
func Classify(s *catalog.Snapshot, in Input) (*Result, error) {
	return classify(s, in, nil, func(code string) ([]catalog.DocumentRequirement, error) {
		return Documents(s, code)
	})
}

type documentsFunc func(code string) ([]catalog.DocumentRequirement, error)

func classify(s *catalog.Snapshot, in Input, manual *Role, docs documentsFunc) (*Result, error) {
	band := CountryRisk(s, in.Country)

	var role Role
	if manual != nil {
		role = *manual
	} else {
		var err error
		role, err = ClassifyRole(s, RoleInput{
			Role:       in.Role,
			SubType:    in.SubType,
			SICCode:    in.SICCode,
			Attributes: in.Fields,
		})
		if err != nil {
			return nil, err
		}
	}

	profile, err := ResolveMatrix(s, band, role.RoleMain, role.RoleSub)
	if err != nil {
		return nil, err
	}
	documents, err := docs(profile.DocumentSetCode)
	if err != nil {
		return nil, err
	}

	res := &Result{
		CatalogVersion: s.Version(),
		CountryRisk:    band,
		Role:           role,
		Profile:        profile,
		Documents:      documents,
	}
	for _, a := range s.Agreements(role.RoleMain, in.Country) {
		res.Agreements = append(res.Agreements, a.TobaCode)
	}
	if q, ok := s.Questionnaire(role.RoleSub); ok {
		res.QuestionnaireCode = q
	}
	res.Flags = raiseFlags(s, in, res)
	return res, nil
}

// FlagFields is the view flag conditions evaluate against: the entity fields
// plus the classification outcome.
func FlagFields(in Input, res *Result) predicate.Fields {
	f := make(predicate.Fields, len(in.Fields)+8)
	for k, v := range in.Fields {
		f[k] = v
	}
	f["country"] = in.Country
	f["countryRisk"] = string(res.CountryRisk)
	f["roleMain"] = res.RoleMain
	f["roleSub"] = res.RoleSub
	f["roleConfidence"] = string(res.Confidence)
	f["roleTier"] = string(res.Tier)
	f["finalRiskProfile"] = res.FinalRiskProfile
	f["cddLevel"] = res.CDDLevel
	return f
}

// raiseFlags returns the codes of flags whose condition holds. Flags without
// a condition are reviewer-raised only and never set here.
func raiseFlags(s *catalog.Snapshot, in Input, res *Result) []string {
	fields := FlagFields(in, res)
	var out []string
	for _, f := range s.Flags() {
		if f.When == nil || !f.When.Eval(fields) {
			continue
		}
		out = append(out, f.Flag.FlagCode)
	}
	return out
}

// Classifier classifies against whichever catalog the registry holds at call
// start and raises integrity alerts through its document assembler.
type Classifier struct {
	registry  *catalog.Registry
	assembler *DocumentAssembler
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Classifier)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// New constructs a Classifier. Register OnCatalogSwap with the registry so
// quarantined document sets are released when a fixed catalog arrives.
func New(registry *catalog.Registry, opts ...Option) *Classifier {
	c := &Classifier{registry: registry, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	c.assembler = NewDocumentAssembler(c.logger, c.metrics)
	return c
}

// OnCatalogSwap forwards registry swaps to the document assembler.
func (c *Classifier) OnCatalogSwap(prev, next *catalog.Snapshot) {
	c.assembler.OnCatalogSwap(prev, next)
}

// Catalog returns the snapshot a classification started now would use.
func (c *Classifier) Catalog() *catalog.Snapshot {
	return c.registry.Current()
}

func (c *Classifier) Classify(ctx context.Context, in Input) (*Result, error) {
	return c.run(ctx, in, nil)
}

// ClassifyManual classifies with a reviewer-supplied role, used when the
// automatic role resolution or matrix lookup blocked the case. The matrix and
// document set are still resolved from the catalog.
func (c *Classifier) ClassifyManual(ctx context.Context, in Input, roleMain, roleSub string) (*Result, error) {
	roleMain, roleSub = strings.TrimSpace(roleMain), strings.TrimSpace(roleSub)
	if roleMain == "" || roleSub == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "roleMain and roleSub are required for manual classification")
	}
	return c.run(ctx, in, &Role{
		RoleMain:   strings.ToUpper(roleMain),
		RoleSub:    roleSub,
		Confidence: catalog.ConfidenceManual,
		Tier:       TierManual,
	})
}

func (c *Classifier) run(ctx context.Context, in Input, manual *Role) (*Result, error) {
	start := time.Now()
	defer c.metrics.ObserveDuration(start)

	s := c.registry.Current()
	if s == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "no catalog loaded")
	}
	res, err := classify(s, in, manual, func(code string) ([]catalog.DocumentRequirement, error) {
		return c.assembler.Assemble(ctx, s, code)
	})
	if err != nil {
		outcome := string(dErrors.CodeOf(err))
		c.metrics.IncrementOutcome(outcome, "")
		c.logger.WarnContext(ctx, "classification blocked",
			"reason", outcome,
			"catalog_version", s.Version(),
			"error", err,
		)
		return nil, err
	}
	c.metrics.IncrementOutcome("classified", string(res.Tier))
	return res, nil
}
