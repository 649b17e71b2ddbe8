// Package models holds the case aggregate and its lifecycle rules.
package models

import (
	"strconv"
	"strings"
	"time"

	"kycengine/internal/classification"
	"kycengine/internal/predicate"
	"kycengine/internal/validation"
	vmodels "kycengine/internal/verification/models"
	id "kycengine/pkg/domain"
	dErrors "kycengine/pkg/domain-errors"
)

// Entity is what the business declared about itself at intake.
type Entity struct {
	LegalName             string `json:"legalName"`
	TradingName           string `json:"tradingName,omitempty"`
	Country               string `json:"country"`
	RoleType              string `json:"roleType"`
	SubType               string `json:"customerType,omitempty"`
	SICCode               string `json:"sicCode,omitempty"`
	RegistrationNumber    string `json:"registrationNumber,omitempty"`
	AddressLine           string `json:"addressLine,omitempty"`
	City                  string `json:"city,omitempty"`
	Postcode              string `json:"postcode,omitempty"`
	StatementEmail        string `json:"statementEmail,omitempty"`
	CreditControllerEmail string `json:"creditControllerEmail,omitempty"`
	BankDetailsRequired   bool   `json:"bankDetailsRequired"`
	BankName              string `json:"bankName,omitempty"`
	BankAccountNumber     string `json:"bankAccountNumber,omitempty"`
	BankSortCode          string `json:"bankSortCode,omitempty"`
}

// Normalize trims every text field and upper-cases the country code.
func (e *Entity) Normalize() {
	for _, f := range []*string{
		&e.LegalName, &e.TradingName, &e.RoleType, &e.SubType, &e.SICCode,
		&e.RegistrationNumber, &e.AddressLine, &e.City, &e.Postcode,
		&e.StatementEmail, &e.CreditControllerEmail, &e.BankName,
		&e.BankAccountNumber, &e.BankSortCode,
	} {
		*f = strings.TrimSpace(*f)
	}
	e.Country = strings.ToUpper(strings.TrimSpace(e.Country))
}

// Fields is the flat view predicates evaluate against. Empty values are
// omitted so that "exists" means "captured".
func (e Entity) Fields() predicate.Fields {
	f := predicate.Fields{"bankDetailsRequired": strconv.FormatBool(e.BankDetailsRequired)}
	set := func(k, v string) {
		if v != "" {
			f[k] = v
		}
	}
	set("legalName", e.LegalName)
	set("tradingName", e.TradingName)
	set("country", e.Country)
	set("roleType", e.RoleType)
	set("subType", e.SubType)
	set("sicCode", e.SICCode)
	set("registrationNumber", e.RegistrationNumber)
	set("addressLine", e.AddressLine)
	set("city", e.City)
	set("postcode", e.Postcode)
	set("statementEmail", e.StatementEmail)
	set("creditControllerEmail", e.CreditControllerEmail)
	set("bankName", e.BankName)
	set("bankAccountNumber", e.BankAccountNumber)
	set("bankSortCode", e.BankSortCode)
	return f
}

// Block is a condition that stops classification until a reviewer acts.
type Block struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
}

// Validation holds the latest gate and post-enrichment reports.
type Validation struct {
	PreEnrichment  *validation.Report `json:"preEnrichment,omitempty"`
	PostEnrichment *validation.Report `json:"postEnrichment,omitempty"`
}

// Defects lists every outstanding failing check.
func (v Validation) Defects() []validation.Defect {
	var out []validation.Defect
	for _, r := range []*validation.Report{v.PreEnrichment, v.PostEnrichment} {
		if r != nil {
			out = append(out, r.Defects...)
		}
	}
	return out
}

// ReachedPhase is the highest phase cleared so far.
func (v Validation) ReachedPhase() int {
	switch {
	case v.PostEnrichment != nil:
		return v.PostEnrichment.Reached
	case v.PreEnrichment != nil:
		return v.PreEnrichment.Reached
	default:
		return 0
	}
}

// Outcome is a reviewer decision.
type Outcome string

const (
	OutcomeApprove Outcome = "APPROVE"
	OutcomeReject  Outcome = "REJECT"
	OutcomeHold    Outcome = "HOLD"
)

func ParseOutcome(v string) (Outcome, error) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(v))); o {
	case OutcomeApprove, OutcomeReject, OutcomeHold:
		return o, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "decision must be APPROVE, REJECT or HOLD, got %q", v)
}

// Target is the status a decision moves the case to.
func (o Outcome) Target() Status {
	switch o {
	case OutcomeApprove:
		return StatusApproved
	case OutcomeReject:
		return StatusRejected
	default:
		return StatusOnHold
	}
}

type Decision struct {
	Reviewer  string    `json:"reviewer"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Submission records the downstream hand-off.
type Submission struct {
	ProcessID string    `json:"processId"`
	Digest    string    `json:"digest"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority,omitempty"`
	Reference string    `json:"reference,omitempty"`
	SentAt    time.Time `json:"sentAt"`
	SentBy    string    `json:"sentToRpaBy,omitempty"`
}

// Case is the aggregate root of one onboarding review.
type Case struct {
	ID             id.CaseID              `json:"id"`
	ClientRef      string                 `json:"clientRef,omitempty"`
	EntityName     string                 `json:"entityName"`
	BusinessUnit   string                 `json:"businessUnit,omitempty"`
	AssignedUser   string                 `json:"assignedUser,omitempty"`
	Status         Status                 `json:"status"`
	Entity         Entity                 `json:"entity"`
	Classification *classification.Result `json:"classification,omitempty"`
	Blocks         []Block                `json:"blocks,omitempty"`
	Validation     Validation             `json:"validation"`
	Enrichment     vmodels.Enrichment     `json:"enrichment"`
	Flags          []string               `json:"flags,omitempty"`
	Decision       *Decision              `json:"decision,omitempty"`
	Submission     *Submission            `json:"submission,omitempty"`
	Version        int                    `json:"version"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// FlagPartialEnrichment marks a case reviewed with at least one failed check.
const FlagPartialEnrichment = "PARTIAL_ENRICHMENT"

// NewCase starts a case in DRAFT.
func NewCase(caseID id.CaseID, entity Entity, now time.Time) (*Case, error) {
	entity.Normalize()
	if entity.LegalName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity.legalName is required")
	}
	return &Case{
		ID:         caseID,
		EntityName: entity.LegalName,
		Status:     StatusDraft,
		Entity:     entity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// TransitionTo moves the case along the lifecycle.
func (c *Case) TransitionTo(to Status, now time.Time) error {
	if !c.Status.CanTransitionTo(to) {
		return dErrors.Newf(dErrors.CodeInvalidState, "case cannot move from %s to %s", c.Status, to)
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}

// Require fails with InvalidState unless the case is in one of statuses.
func (c *Case) Require(op string, statuses ...Status) error {
	for _, s := range statuses {
		if c.Status == s {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvalidState, "cannot %s a case in %s", op, c.Status)
}

// SetEntity replaces declared attributes and drops everything derived from them.
func (c *Case) SetEntity(e Entity, now time.Time) error {
	if !c.Status.AllowsEntityEdits() {
		return dErrors.Newf(dErrors.CodeInvalidState, "entity attributes are locked in %s", c.Status)
	}
	e.Normalize()
	if e.LegalName == "" {
		return dErrors.New(dErrors.CodeValidation, "entity.legalName is required")
	}
	c.Entity = e
	c.EntityName = e.LegalName
	c.Classification = nil
	c.Blocks = nil
	c.Validation = Validation{}
	c.Flags = nil
	c.UpdatedAt = now
	return nil
}

// Classified records a successful classification and clears blocks.
func (c *Case) Classified(res *classification.Result, now time.Time) {
	c.Classification = res
	c.Blocks = nil
	c.Flags = append([]string(nil), res.Flags...)
	c.UpdatedAt = now
}

// Blocked records why classification could not complete.
func (c *Case) Blocked(err error, now time.Time) {
	msg := err.Error()
	if de, ok := dErrors.As(err); ok {
		msg = de.Message
	}
	c.Classification = nil
	c.Blocks = []Block{{Code: dErrors.CodeOf(err), Message: msg}}
	c.UpdatedAt = now
}

func (c *Case) IsBlocked() bool { return len(c.Blocks) > 0 }

// ClassificationInput is what the classifier reads from the case.
func (c *Case) ClassificationInput() classification.Input {
	return c.Entity.ClassificationInput()
}

// ClassificationInput is the subset of the entity the classifier reads.
func (e Entity) ClassificationInput() classification.Input {
	return classification.Input{
		Country: e.Country,
		Role:    e.RoleType,
		SubType: e.SubType,
		SICCode: e.SICCode,
		Fields:  e.Fields(),
	}
}

// Fields is the full predicate view: entity attributes, the classification
// outcome and the enrichment results.
func (c *Case) Fields() predicate.Fields {
	in := c.ClassificationInput()
	f := in.Fields
	if c.Classification != nil {
		f = classification.FlagFields(in, c.Classification)
	}
	for k, v := range c.Enrichment.Fields() {
		f[k] = v
	}
	return f
}

// Subject is the provider-facing view of the entity.
func (c *Case) Subject() vmodels.Subject {
	s := vmodels.Subject{
		CaseID:             c.ID.String(),
		LegalName:          c.Entity.LegalName,
		TradingName:        c.Entity.TradingName,
		RegistrationNumber: c.Entity.RegistrationNumber,
		Country:            c.Entity.Country,
		Postcode:           c.Entity.Postcode,
	}
	if c.Classification != nil {
		s.RoleMain = c.Classification.RoleMain
	}
	return s
}

// AcceptsResult reports whether a provider result may be recorded: the case
// is still in an enrichment-accepting state, the generation is current, and
// the provider was planned for this case. Accepted results replace whatever
// the provider held before, so the last completed attempt wins.
func (c *Case) AcceptsResult(r vmodels.CheckResult) bool {
	if !c.Status.AcceptsEnrichment() || r.Generation != c.Enrichment.Generation {
		return false
	}
	existing, ok := c.Enrichment.Get(r.Provider)
	return ok && existing.Status != vmodels.StatusNotApplicable
}

// HasFlag reports whether code is raised on the case.
func (c *Case) HasFlag(code string) bool {
	for _, f := range c.Flags {
		if f == code {
			return true
		}
	}
	return false
}

// AddFlag raises code once.
func (c *Case) AddFlag(code string) {
	if !c.HasFlag(code) {
		c.Flags = append(c.Flags, code)
	}
}
