package handler

import (
	"net/url"
	"strconv"
	"strings"

	"kycengine/internal/cases/models"
	"kycengine/internal/cases/service"
	dErrors "kycengine/pkg/domain-errors"
)

// CreateCaseRequest is the body of POST /cases.
type CreateCaseRequest struct {
	ClientRef    string        `json:"clientRef"`
	BusinessUnit string        `json:"businessUnit"`
	AssignedUser string        `json:"assignedUser"`
	Entity       models.Entity `json:"entity"`
}

func (r *CreateCaseRequest) Normalize() {
	r.ClientRef = strings.TrimSpace(r.ClientRef)
	r.BusinessUnit = strings.TrimSpace(r.BusinessUnit)
	r.AssignedUser = strings.TrimSpace(r.AssignedUser)
	r.Entity.Normalize()
}

func (r *CreateCaseRequest) Validate() error {
	if r.Entity.LegalName == "" {
		return dErrors.New(dErrors.CodeValidation, "entity.legalName is required")
	}
	if len(r.Entity.LegalName) > 255 {
		return dErrors.New(dErrors.CodeValidation, "entity.legalName must be at most 255 characters")
	}
	return nil
}

func (r *CreateCaseRequest) toInput() service.CreateInput {
	return service.CreateInput{
		ClientRef:    r.ClientRef,
		BusinessUnit: r.BusinessUnit,
		AssignedUser: r.AssignedUser,
		Entity:       r.Entity,
	}
}

// UpdateCaseRequest is the body of PUT /cases/{id}. Omitted fields are left
// unchanged.
type UpdateCaseRequest struct {
	Version      int            `json:"version"`
	ClientRef    *string        `json:"clientRef"`
	BusinessUnit *string        `json:"businessUnit"`
	AssignedUser *string        `json:"assignedUser"`
	Entity       *models.Entity `json:"entity"`
}

func (r *UpdateCaseRequest) Validate() error {
	if r.Version < 0 {
		return dErrors.New(dErrors.CodeValidation, "version must not be negative")
	}
	if r.ClientRef == nil && r.BusinessUnit == nil && r.AssignedUser == nil && r.Entity == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	return nil
}

func (r *UpdateCaseRequest) toInput() service.UpdateInput {
	return service.UpdateInput{
		ExpectedVersion: r.Version,
		ClientRef:       r.ClientRef,
		BusinessUnit:    r.BusinessUnit,
		AssignedUser:    r.AssignedUser,
		Entity:          r.Entity,
	}
}

// ManualClassificationRequest is the body of POST /cases/{id}/classify/manual.
type ManualClassificationRequest struct {
	RoleMain string `json:"roleMain"`
	RoleSub  string `json:"roleSub"`
	Reason   string `json:"reason"`
}

func (r *ManualClassificationRequest) Normalize() {
	r.RoleMain = strings.ToUpper(strings.TrimSpace(r.RoleMain))
	r.RoleSub = strings.TrimSpace(r.RoleSub)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ManualClassificationRequest) Validate() error {
	if r.RoleMain == "" || r.RoleSub == "" {
		return dErrors.New(dErrors.CodeValidation, "roleMain and roleSub are required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// DecisionRequest is the body of POST /cases/{id}/decision.
type DecisionRequest struct {
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason"`
	Reviewer string `json:"reviewer"`

	parsedOutcome models.Outcome
}

func (r *DecisionRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
	r.Reviewer = strings.TrimSpace(r.Reviewer)
}

func (r *DecisionRequest) Validate() error {
	outcome, err := models.ParseOutcome(r.Outcome)
	if err != nil {
		return err
	}
	r.parsedOutcome = outcome
	return nil
}

func (r *DecisionRequest) toInput() service.DecisionInput {
	return service.DecisionInput{Outcome: r.parsedOutcome, Reason: r.Reason, Reviewer: r.Reviewer}
}

// SendRequest is the body of POST /cases/{id}/send-to-pas.
type SendRequest struct {
	SentBy          string `json:"sentToRpaBy"`
	Priority        string `json:"priority"`
	ReferencePrefix string `json:"referencePrefix"`
}

func (r *SendRequest) Normalize() {
	r.SentBy = strings.TrimSpace(r.SentBy)
	r.Priority = strings.ToUpper(strings.TrimSpace(r.Priority))
	r.ReferencePrefix = strings.TrimSpace(r.ReferencePrefix)
}

func (r *SendRequest) toOptions() service.SendOptions {
	return service.SendOptions{SentBy: r.SentBy, Priority: r.Priority, ReferencePrefix: r.ReferencePrefix}
}

// parseListFilter reads the case list query string.
func parseListFilter(q url.Values) (models.ListFilter, error) {
	f := models.ListFilter{
		BusinessUnit: q.Get("businessUnit"),
		AssignedUser: q.Get("assignedUser"),
		Search:       q.Get("search"),
		SortBy:       models.SortField(strings.TrimSpace(q.Get("sortBy"))),
	}
	if v := strings.TrimSpace(q.Get("case_status")); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	var err error
	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = intParam(q, "pageSize"); err != nil {
		return f, err
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("sortOrder"))) {
	case "":
		// default ordering is chosen by the filter
	case "asc":
		f.Desc = false
	case "desc":
		f.Desc = true
	default:
		return f, dErrors.New(dErrors.CodeValidation, "sortOrder must be asc or desc")
	}
	if f.SortBy == "" && q.Get("sortOrder") != "" {
		f.SortBy = models.SortCreatedAt
	}
	return f, nil
}

func intParam(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be a non-negative integer", key)
	}
	return n, nil
}
