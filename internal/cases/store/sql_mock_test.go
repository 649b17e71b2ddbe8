package store_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycengine/internal/cases/models"
	"kycengine/internal/cases/store"
	"kycengine/internal/platform/database"
	id "kycengine/pkg/domain"
	"kycengine/pkg/platform/sentinel"
	txcontext "kycengine/pkg/platform/tx"
)

func newMock(t *testing.T) (*store.SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return store.NewSQL(db, database.DriverPostgres), mock
}

func mockCase(t *testing.T) *models.Case {
	t.Helper()
	c, err := models.NewCase(id.NewCaseID(), models.Entity{LegalName: "Acme Ltd", Country: "GB"},
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return c
}

func TestSQLStore_CreateUsesPostgresPlaceholders(t *testing.T) {
	s, mock := newMock(t)
	c := mockCase(t)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)")).
		WithArgs(c.ID.String(), "", "Acme Ltd", "", "", "DRAFT", int64(1),
			"2026-03-01T09:00:00.000000000Z", "2026-03-01T09:00:00.000000000Z", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), c))
}

func TestSQLStore_CreateConflict(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("INSERT INTO cases").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Create(context.Background(), mockCase(t))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestSQLStore_UpdateChecksVersion(t *testing.T) {
	t.Run("bumps version on match", func(t *testing.T) {
		s, mock := newMock(t)
		c := mockCase(t)
		c.Version = 3

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $9 AND version = $10")).
			WithArgs("", "Acme Ltd", "", "", "DRAFT", int64(4), sqlmock.AnyArg(), sqlmock.AnyArg(), c.ID.String(), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Update(context.Background(), c))
		assert.Equal(t, 4, c.Version)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		s, mock := newMock(t)
		c := mockCase(t)
		c.Version = 3

		mock.ExpectExec("UPDATE cases").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM cases WHERE id = $1")).
			WithArgs(c.ID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		err := s.Update(context.Background(), c)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		assert.Equal(t, 3, c.Version)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		s, mock := newMock(t)
		c := mockCase(t)

		mock.ExpectExec("UPDATE cases").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1 FROM cases").WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, s.Update(context.Background(), c), sentinel.ErrNotFound)
	})
}

func TestSQLStore_UpdateJoinsContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := store.NewSQL(db, database.DriverSQLite)
	c := mockCase(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND version = ?")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = database.RunInTx(context.Background(), db, func(ctx context.Context) error {
		_, ok := txcontext.From(ctx)
		require.True(t, ok)
		return s.Update(ctx, c)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindByIDNotFound(t *testing.T) {
	s, mock := newMock(t)
	caseID := id.NewCaseID()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, document FROM cases WHERE id = $1")).
		WithArgs(caseID.String()).
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByID(context.Background(), caseID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSQLStore_ListBuildsFilteredQuery(t *testing.T) {
	s, mock := newMock(t)
	c := mockCase(t)
	doc := `{"id":"` + c.ID.String() + `","entityName":"Acme Ltd","status":"SUBMITTED","entity":{"legalName":"Acme Ltd","country":"GB","roleType":"","bankDetailsRequired":false},"validation":{},"enrichment":{"generation":0,"checks":null},"version":9,"createdAt":"2026-03-01T09:00:00Z","updatedAt":"2026-03-01T09:00:00Z"}`

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM cases WHERE status = $1 AND (LOWER(entity_name) LIKE $2")).
		WithArgs("SUBMITTED", "%acme%", "%acme%", "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY LOWER(entity_name) ASC, id ASC LIMIT $5 OFFSET $6")).
		WithArgs("SUBMITTED", "%acme%", "%acme%", "%acme%", int64(10), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "document"}).AddRow(2, doc))

	page, err := s.List(context.Background(), models.ListFilter{
		Status:   models.StatusSubmitted,
		Search:   " Acme ",
		SortBy:   models.SortEntityName,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalElements)
	require.Len(t, page.Content, 1)
	assert.Equal(t, 2, page.Content[0].Version, "column version wins over the document copy")
	assert.Equal(t, c.ID, page.Content[0].ID)
}

func TestSQLStore_ListEscapesLikeWildcards(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (LOWER(entity_name) LIKE $1 ESCAPE '\' OR LOWER(id) LIKE $2 ESCAPE '\' OR LOWER(client_ref) LIKE $3 ESCAPE '\')`)).
		WithArgs(`%100\%\_a\\b%`, `%100\%\_a\\b%`, `%100\%\_a\\b%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, document FROM cases WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "document"}))

	page, err := s.List(context.Background(), models.ListFilter{Search: `100%_a\b`})
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
}
