// Package store persists case aggregates. Every implementation enforces
// optimistic concurrency: Update succeeds only when the caller holds the
// current version, and bumps it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"kycengine/internal/cases/models"
	id "kycengine/pkg/domain"
	"kycengine/pkg/platform/sentinel"
)

// InMemory keeps cases as serialized snapshots so callers never share
// mutable state with the store.
type InMemory struct {
	mu    sync.RWMutex
	cases map[id.CaseID][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[id.CaseID][]byte)}
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrConflict)
	}
	c.Version = 1
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case: %w", err)
	}
	s.cases[c.ID] = raw
	return nil
}

func (s *InMemory) FindByID(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	raw, ok := s.cases[caseID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	return decode(raw)
}

func (s *InMemory) Update(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.cases[c.ID]
	if !ok {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrNotFound)
	}
	current, err := decode(raw)
	if err != nil {
		return err
	}
	if current.Version != c.Version {
		return fmt.Errorf("case %s at version %d, have %d: %w", c.ID, current.Version, c.Version, sentinel.ErrConflict)
	}
	c.Version++
	next, err := json.Marshal(c)
	if err != nil {
		c.Version--
		return fmt.Errorf("encode case: %w", err)
	}
	s.cases[c.ID] = next
	return nil
}

func (s *InMemory) List(_ context.Context, filter models.ListFilter) (models.Page, error) {
	if err := filter.Normalize(); err != nil {
		return models.Page{}, err
	}
	s.mu.RLock()
	all := make([]*models.Case, 0, len(s.cases))
	for _, raw := range s.cases {
		c, err := decode(raw)
		if err != nil {
			s.mu.RUnlock()
			return models.Page{}, err
		}
		if filter.Matches(c) {
			all = append(all, c)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		cmp := compare(all[i], all[j], filter.SortBy)
		if cmp == 0 {
			return all[i].ID.String() < all[j].ID.String()
		}
		if filter.Desc {
			return cmp > 0
		}
		return cmp < 0
	})

	page := models.Page{Content: []*models.Case{}, TotalElements: len(all), Size: filter.PageSize, Number: filter.Page}
	start := filter.Page * filter.PageSize
	if start < len(all) {
		end := min(start+filter.PageSize, len(all))
		page.Content = all[start:end]
	}
	return page, nil
}

func compare(a, b *models.Case, field models.SortField) int {
	switch field {
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case models.SortEntityName:
		return strings.Compare(strings.ToLower(a.EntityName), strings.ToLower(b.EntityName))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func decode(raw []byte) (*models.Case, error) {
	var c models.Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	return &c, nil
}
