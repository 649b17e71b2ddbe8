package classification

import (
	"strings"

	"kycengine/internal/catalog"
	"kycengine/internal/predicate"
	dErrors "kycengine/pkg/domain-errors"
)

// Tier names the resolution step that produced a role.
type Tier string

const (
	TierDirect     Tier = "direct"
	TierFallback   Tier = "fallback"
	TierSICDefault Tier = "sic_default"
	TierManual     Tier = "manual"
)

// RoleInput is what the entity declared about itself.
type RoleInput struct {
	Role    string
	SubType string
	SICCode string
	// Extra fields visible to fallback conditions, such as country.
	Attributes predicate.Fields
}

// Role is a canonical role with the evidence of how it was reached.
type Role struct {
	RoleMain   string             `json:"roleMain"`
	RoleSub    string             `json:"roleSub"`
	Confidence catalog.Confidence `json:"confidence"`
	Tier       Tier               `json:"tier"`
	// FallbackRule is the index of the matching rule when Tier is fallback.
	FallbackRule *int `json:"fallbackRule,omitempty"`
}

func (in RoleInput) fields() predicate.Fields {
	f := make(predicate.Fields, len(in.Attributes)+3)
	for k, v := range in.Attributes {
		f[k] = v
	}
	f["role"] = in.Role
	f["subType"] = in.SubType
	f["sicCode"] = in.SICCode
	return f
}

// ClassifyRole resolves the declared role against s. Direct mapping wins over
// fallback rules, which win over the SIC default; fallback rules are tried in
// declared order and the first match is taken.
func ClassifyRole(s *catalog.Snapshot, in RoleInput) (Role, error) {
	declaredSub := strings.TrimSpace(in.SubType)

	if entry, ok := s.DirectRole(in.Role); ok {
		return finishRole(in, Role{
			RoleMain:   entry.RoleMain,
			RoleSub:    firstNonEmpty(entry.RoleSub, declaredSub),
			Confidence: catalog.ConfidenceExact,
			Tier:       TierDirect,
		})
	}

	fields := in.fields()
	for _, fb := range s.Fallbacks() {
		if !fb.When.Eval(fields) {
			continue
		}
		idx := fb.Index
		return finishRole(in, Role{
			RoleMain:     fb.Rule.Result,
			RoleSub:      firstNonEmpty(fb.Rule.RoleSub, declaredSub),
			Confidence:   fb.Rule.Confidence,
			Tier:         TierFallback,
			FallbackRule: &idx,
		})
	}

	if code := strings.TrimSpace(in.SICCode); code != "" {
		if entry, ok := s.SICDefault(code); ok {
			return finishRole(in, Role{
				RoleMain:   entry.DefaultRole,
				RoleSub:    declaredSub,
				Confidence: catalog.ConfidenceDefault,
				Tier:       TierSICDefault,
			})
		}
	}

	return Role{}, dErrors.Newf(dErrors.CodeRoleUnresolved,
		"role %q (SIC %q) matched no mapping, fallback rule or SIC default", in.Role, in.SICCode)
}

func finishRole(in RoleInput, r Role) (Role, error) {
	if r.RoleSub == "" {
		return Role{}, dErrors.Newf(dErrors.CodeRoleUnresolved,
			"role %q resolved to %s via %s but no sub-type was declared", in.Role, r.RoleMain, r.Tier)
	}
	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
