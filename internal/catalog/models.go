package catalog

import "kycengine/internal/predicate"

// RiskBand is the country risk classification.
type RiskBand string

const (
	BandLower  RiskBand = "LOWER"
	BandHigher RiskBand = "HIGHER"
)

// Confidence records which resolution tier produced a role.
type Confidence string

const (
	ConfidenceExact   Confidence = "exact"
	ConfidencePartial Confidence = "partial"
	ConfidenceDefault Confidence = "default"
	// ConfidenceManual marks a role supplied by a reviewer for a blocked case.
	ConfidenceManual Confidence = "manual"
)

// Rank orders confidences: exact > partial > default. Manual ranks with exact.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceExact, ConfidenceManual:
		return 3
	case ConfidencePartial:
		return 2
	case ConfidenceDefault:
		return 1
	default:
		return 0
	}
}

// Catalog is the serialized rule artifact. It is decoded once, checked, and
// compiled into a Snapshot; nothing reads it directly after that.
type Catalog struct {
	Version                   string                       `json:"version"`
	SchemaVersion             string                       `json:"schemaVersion"`
	Description               string                       `json:"description,omitempty"`
	LastUpdated               string                       `json:"lastUpdated,omitempty"`
	CountryRisk               CountryRiskTable             `json:"countryRisk"`
	RoleTypes                 RoleTypeTable                `json:"roleTypes"`
	RoleMapping               RoleMapping                  `json:"roleMapping"`
	RulesMatrix               RulesMatrix                  `json:"rulesMatrix"`
	DocumentSets              map[string]DocumentSet       `json:"documentSets"`
	ValidationChecks          map[string][]ValidationCheck `json:"validationChecks,omitempty"`
	TobaCatalog               TobaCatalog                  `json:"tobaCatalog,omitempty"`
	QuestionnaireMapping      QuestionnaireMapping         `json:"questionnaireMapping,omitempty"`
	ClientClassificationFlags ClassificationFlags          `json:"clientClassificationFlags,omitempty"`
	Enrichment                map[string]EnrichmentPolicy  `json:"enrichment,omitempty"`
	WorkflowMetadata          WorkflowMetadata             `json:"workflowMetadata,omitempty"`
}

// CountryRiskTable lists LOWER-risk jurisdictions; everything else takes the default band.
type CountryRiskTable struct {
	Lower            []string `json:"LOWER"`
	DefaultIfUnknown RiskBand `json:"defaultIfUnknown"`
	Source           string   `json:"source,omitempty"`
}

type RoleType struct {
	RoleMain string `json:"roleMain"`
	RoleSub  string `json:"roleSub"`
}

type RoleTypeTable struct {
	Roles []RoleType `json:"roles"`
}

type RoleMapping struct {
	Mappings       map[string]RoleMappingEntry `json:"mappings"`
	FallbackRules  FallbackRules               `json:"fallbackRules,omitempty"`
	SICCodeMapping map[string]SICEntry         `json:"sicCodeMapping,omitempty"`
}

type RoleMappingEntry struct {
	RoleMain    string `json:"roleMain"`
	RoleSub     string `json:"roleSub,omitempty"`
	Description string `json:"description,omitempty"`
}

type FallbackRules struct {
	Description string         `json:"description,omitempty"`
	Rules       []FallbackRule `json:"rules"`
}

// FallbackRule resolves a role when no direct mapping exists. Rules are
// evaluated in declared order and the first match wins.
type FallbackRule struct {
	Condition  predicate.Expr `json:"condition"`
	Result     string         `json:"result"`
	RoleSub    string         `json:"roleSub,omitempty"`
	Confidence Confidence     `json:"confidence"`
}

type SICEntry struct {
	Description string `json:"description,omitempty"`
	DefaultRole string `json:"defaultRole"`
}

type RulesMatrix struct {
	Rules []MatrixRule `json:"rules"`
}

// MatrixRule maps (countryRisk, roleMain, roleSub) to a risk outcome.
type MatrixRule struct {
	CountryRisk      RiskBand `json:"countryRisk"`
	RoleMain         string   `json:"roleMain"`
	RoleSub          string   `json:"roleSub"`
	FinalRiskProfile string   `json:"finalRiskProfile"`
	DocumentSetCode  string   `json:"documentSetCode"`
	CDDLevel         string   `json:"cddLevel"`
}

type DocumentSet struct {
	Name      string                `json:"name"`
	Documents []DocumentRequirement `json:"documents"`
}

type DocumentRequirement struct {
	DocumentName string `json:"documentName"`
	Mandatory    bool   `json:"mandatory"`
	Automated    bool   `json:"automated"`
	Notes        string `json:"notes,omitempty"`
}

// CheckStatus is the catalog lifecycle of a validation check, not its outcome.
type CheckStatus string

const (
	CheckActive   CheckStatus = "active"
	CheckDisabled CheckStatus = "disabled"
	CheckDraft    CheckStatus = "draft"
)

type ValidationCheck struct {
	CheckCode     string          `json:"checkCode"`
	Description   string          `json:"description,omitempty"`
	PassCondition predicate.Expr  `json:"passCondition"`
	FailCondition *predicate.Expr `json:"failCondition,omitempty"`
	AppliesWhen   *predicate.Expr `json:"appliesWhen,omitempty"`
	Source        string          `json:"source,omitempty"`
	Status        CheckStatus     `json:"status"`
	Phase         int             `json:"phase"`
}

type TobaCatalog struct {
	Agreements []TobaAgreement `json:"agreements"`
}

// TobaAgreement is a downstream terms-of-business agreement. Jurisdiction "*"
// applies to every country.
type TobaAgreement struct {
	TobaCode     string `json:"tobaCode"`
	Jurisdiction string `json:"jurisdiction"`
	RoleMain     string `json:"roleMain"`
	LegalEntity  string `json:"legalEntity"`
	Description  string `json:"description,omitempty"`
}

type QuestionnaireMapping struct {
	Mappings []QuestionnaireEntry `json:"mappings"`
}

type QuestionnaireEntry struct {
	RoleSub           string `json:"roleSub"`
	QuestionnaireCode string `json:"questionnaireCode"`
}

type ClassificationFlags struct {
	Flags []ClassificationFlag `json:"flags"`
}

// ClassificationFlag is raised on a case when When holds. Flags without a
// condition are informational and never raised automatically.
type ClassificationFlag struct {
	FlagCode    string          `json:"flagCode"`
	Description string          `json:"description,omitempty"`
	When        *predicate.Expr `json:"when,omitempty"`
}

// EnrichmentPolicy decides whether a provider check applies to a case.
type EnrichmentPolicy struct {
	Enabled        bool            `json:"enabled"`
	ApplicableWhen *predicate.Expr `json:"applicableWhen,omitempty"`
}

type WorkflowMetadata struct {
	// EnrichmentPhase is the first validation phase evaluated after enrichment.
	EnrichmentPhase int `json:"enrichmentPhase,omitempty"`
	// MaxRetryAttempts overrides the configured provider attempt budget when set.
	MaxRetryAttempts int `json:"maxRetryAttempts,omitempty"`
}
