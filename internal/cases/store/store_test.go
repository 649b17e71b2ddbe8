package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kycengine/internal/cases/models"
	"kycengine/internal/cases/store"
	"kycengine/internal/platform/config"
	"kycengine/internal/platform/database"
	id "kycengine/pkg/domain"
	"kycengine/pkg/platform/sentinel"
)

type caseStore interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
	List(ctx context.Context, filter models.ListFilter) (models.Page, error)
}

// StoreSuite runs the same behaviour checks against every implementation.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) caseStore
	store    caseStore
	ctx      context.Context
	base     time.Time
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) caseStore { return store.NewInMemory() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) caseStore {
		db, err := database.Open(context.Background(), config.DatabaseConfig{
			Driver:     database.DriverSQLite,
			SQLitePath: t.TempDir() + "/cases.db",
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, database.Migrate(context.Background(), db.DB, store.Schema))
		return store.NewSQL(db.DB, db.Driver)
	}})
}

func (s *StoreSuite) newCase(name string, offset time.Duration) *models.Case {
	c, err := models.NewCase(id.NewCaseID(), models.Entity{LegalName: name, Country: "GB", RoleType: "BROKER"}, s.base.Add(offset))
	s.Require().NoError(err)
	return c
}

func (s *StoreSuite) TestCreateAndFind() {
	s.Run("round-trips the aggregate", func() {
		c := s.newCase("Acme Ltd", 0)
		c.ClientRef = "CR-1"
		s.Require().NoError(s.store.Create(s.ctx, c))
		s.Equal(1, c.Version)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
		s.Equal("Acme Ltd", found.Entity.LegalName)
		s.Equal("CR-1", found.ClientRef)
		s.Equal(models.StatusDraft, found.Status)
		s.Equal(1, found.Version)
		s.True(c.CreatedAt.Equal(found.CreatedAt))
	})

	s.Run("rejects a duplicate id", func() {
		c := s.newCase("Dup Ltd", 0)
		s.Require().NoError(s.store.Create(s.ctx, c))
		err := s.store.Create(s.ctx, c)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewCaseID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestOptimisticUpdate() {
	c := s.newCase("Versioned Ltd", 0)
	s.Require().NoError(s.store.Create(s.ctx, c))

	stale, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)

	c.Status = models.StatusSubmitted
	s.Require().NoError(s.store.Update(s.ctx, c))
	s.Equal(2, c.Version)

	stale.AssignedUser = "someone"
	err = s.store.Update(s.ctx, stale)
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(1, stale.Version, "failed update must not bump the caller's version")

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, found.Status)
	s.Empty(found.AssignedUser)

	missing := s.newCase("Ghost Ltd", 0)
	missing.Version = 1
	s.ErrorIs(s.store.Update(s.ctx, missing), sentinel.ErrNotFound)
}

func (s *StoreSuite) TestList() {
	names := []string{"Charlie Ltd", "alpha plc", "Bravo SA"}
	var created []*models.Case
	for i, n := range names {
		c := s.newCase(n, time.Duration(i)*time.Minute)
		c.BusinessUnit = "UK"
		if i == 2 {
			c.BusinessUnit = "FR"
			c.Status = models.StatusSubmitted
		}
		s.Require().NoError(s.store.Create(s.ctx, c))
		created = append(created, c)
	}

	s.Run("defaults to newest first", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{})
		s.Require().NoError(err)
		s.Equal(3, page.TotalElements)
		s.Equal(models.DefaultPageSize, page.Size)
		s.Require().Len(page.Content, 3)
		s.Equal(created[2].ID, page.Content[0].ID)
		s.Equal(created[0].ID, page.Content[2].ID)
	})

	s.Run("sorts by entity name case-insensitively", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{SortBy: models.SortEntityName})
		s.Require().NoError(err)
		s.Require().Len(page.Content, 3)
		s.Equal([]string{"alpha plc", "Bravo SA", "Charlie Ltd"}, entityNames(page))
	})

	s.Run("filters and searches", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{BusinessUnit: "uk"})
		s.Require().NoError(err)
		s.Equal(2, page.TotalElements)

		page, err = s.store.List(s.ctx, models.ListFilter{Status: models.StatusSubmitted})
		s.Require().NoError(err)
		s.Equal([]string{"Bravo SA"}, entityNames(page))

		page, err = s.store.List(s.ctx, models.ListFilter{Search: "ALPHA"})
		s.Require().NoError(err)
		s.Equal([]string{"alpha plc"}, entityNames(page))

		page, err = s.store.List(s.ctx, models.ListFilter{Search: created[0].ID.String()[:8]})
		s.Require().NoError(err)
		s.Equal([]string{"Charlie Ltd"}, entityNames(page))
	})

	s.Run("pages", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{PageSize: 2, Page: 1, SortBy: models.SortCreatedAt})
		s.Require().NoError(err)
		s.Equal(3, page.TotalElements)
		s.Equal(1, page.Number)
		s.Equal(2, page.TotalPages())
		s.Equal([]string{"Bravo SA"}, entityNames(page))

		page, err = s.store.List(s.ctx, models.ListFilter{PageSize: 2, Page: 5})
		s.Require().NoError(err)
		s.Empty(page.Content)
		s.NotNil(page.Content)
	})

	s.Run("rejects unknown sort field", func() {
		_, err := s.store.List(s.ctx, models.ListFilter{SortBy: "riskScore"})
		s.Error(err)
	})
}

func (s *StoreSuite) TestListSearchMatchesWildcardsLiterally() {
	for i, n := range []string{"100% Holdings", "1000 Holdings", "a_b Ltd", "axb Ltd", `back\slash plc`} {
		s.Require().NoError(s.store.Create(s.ctx, s.newCase(n, time.Duration(i)*time.Minute)))
	}

	for _, tc := range []struct {
		search string
		want   []string
	}{
		{"100%", []string{"100% Holdings"}},
		{"a_b", []string{"a_b Ltd"}},
		{"%", []string{"100% Holdings"}},
		{`k\s`, []string{`back\slash plc`}},
	} {
		page, err := s.store.List(s.ctx, models.ListFilter{Search: tc.search, SortBy: models.SortEntityName})
		s.Require().NoError(err)
		s.Equal(tc.want, entityNames(page), "search %q", tc.search)
	}
}

func entityNames(p models.Page) []string {
	out := make([]string, 0, len(p.Content))
	for _, c := range p.Content {
		out = append(out, c.EntityName)
	}
	return out
}
