package models

import (
	"slices"
	"strings"

	dErrors "kycengine/pkg/domain-errors"
)

// Status is the review lifecycle position of a case.
//
//	DRAFT ─► SUBMITTED ─┬─► ENRICHED ─► UNDER_REVIEW ─┬─► APPROVED ─► ONBOARDING_COMPLETE
//	            ▲       │                   ▲         ├─► REJECTED
//	            └── AWAITING_EXTERNAL_RESPONSE  └──── ON_HOLD
type Status string

const (
	StatusDraft                    Status = "DRAFT"
	StatusSubmitted                Status = "SUBMITTED"
	StatusEnriched                 Status = "ENRICHED"
	StatusAwaitingExternalResponse Status = "AWAITING_EXTERNAL_RESPONSE"
	StatusUnderReview              Status = "UNDER_REVIEW"
	StatusApproved                 Status = "APPROVED"
	StatusRejected                 Status = "REJECTED"
	StatusOnHold                   Status = "ON_HOLD"
	StatusOnboardingComplete       Status = "ONBOARDING_COMPLETE"
)

var transitions = map[Status][]Status{
	StatusDraft:                    {StatusSubmitted},
	StatusSubmitted:                {StatusEnriched, StatusAwaitingExternalResponse},
	StatusAwaitingExternalResponse: {StatusSubmitted},
	StatusEnriched:                 {StatusUnderReview},
	StatusUnderReview:              {StatusApproved, StatusRejected, StatusOnHold},
	StatusOnHold:                   {StatusUnderReview},
	StatusApproved:                 {StatusOnboardingComplete},
}

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusEnriched, StatusAwaitingExternalResponse,
	StatusUnderReview, StatusApproved, StatusRejected, StatusOnHold, StatusOnboardingComplete,
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !slices.Contains(AllStatuses, s) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown case status %q", v)
	}
	return s, nil
}

func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// AllowsEntityEdits reports whether declared entity attributes may change.
func (s Status) AllowsEntityEdits() bool {
	return s == StatusDraft || s == StatusSubmitted || s == StatusAwaitingExternalResponse
}

// AllowsClassification reports whether the case may be (re)classified.
func (s Status) AllowsClassification() bool {
	return s.AllowsEntityEdits()
}

// AcceptsEnrichment reports whether provider results may still land.
func (s Status) AcceptsEnrichment() bool {
	return s == StatusEnriched || s == StatusUnderReview || s == StatusOnHold
}

// Exportable reports whether a submission payload may be produced.
func (s Status) Exportable() bool {
	return s == StatusApproved || s == StatusOnboardingComplete
}
