package models

import (
	"strings"

	dErrors "kycengine/pkg/domain-errors"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// SortField is a case list ordering column.
type SortField string

const (
	SortCreatedAt  SortField = "createdAt"
	SortUpdatedAt  SortField = "updatedAt"
	SortStatus     SortField = "status"
	SortEntityName SortField = "entityName"
)

// ListFilter selects and orders cases. Page is zero-based.
type ListFilter struct {
	Status       Status
	BusinessUnit string
	AssignedUser string
	// Search matches entity name, case id or client ref, case-insensitively.
	Search   string
	Page     int
	PageSize int
	SortBy   SortField
	Desc     bool
}

// Normalize applies defaults and rejects unknown sort fields.
func (f *ListFilter) Normalize() error {
	f.BusinessUnit = strings.TrimSpace(f.BusinessUnit)
	f.AssignedUser = strings.TrimSpace(f.AssignedUser)
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 0 {
		f.Page = 0
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortCreatedAt
		f.Desc = true
	case SortCreatedAt, SortUpdatedAt, SortStatus, SortEntityName:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "cannot sort by %q", f.SortBy)
	}
	return nil
}

// Matches applies the filter predicates to c. Used by in-memory stores.
func (f ListFilter) Matches(c *Case) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.BusinessUnit != "" && !strings.EqualFold(c.BusinessUnit, f.BusinessUnit) {
		return false
	}
	if f.AssignedUser != "" && !strings.EqualFold(c.AssignedUser, f.AssignedUser) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.EntityName), q) &&
			!strings.Contains(strings.ToLower(c.ID.String()), q) &&
			!strings.Contains(strings.ToLower(c.ClientRef), q) {
			return false
		}
	}
	return true
}

// Page is one page of cases in list order.
type Page struct {
	Content       []*Case `json:"content"`
	TotalElements int     `json:"totalElements"`
	Size          int     `json:"size"`
	Number        int     `json:"number"`
}

func (p Page) NumberOfElements() int { return len(p.Content) }

func (p Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.TotalElements + p.Size - 1) / p.Size
}
