package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kycengine/internal/cases/models"
	"kycengine/internal/platform/database"
	id "kycengine/pkg/domain"
	"kycengine/pkg/platform/sentinel"
	txcontext "kycengine/pkg/platform/tx"
)

// Schema creates the cases table. Column types are shared by Postgres and
// sqlite; the full aggregate lives in document and the remaining columns
// exist for filtering and ordering.
const Schema = `
CREATE TABLE IF NOT EXISTS cases (
	id            TEXT PRIMARY KEY,
	client_ref    TEXT NOT NULL DEFAULT '',
	entity_name   TEXT NOT NULL,
	business_unit TEXT NOT NULL DEFAULT '',
	assigned_user TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	version       INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	document      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_status ON cases (status, created_at);
`

// timeLayout is fixed-width so text ordering matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var sortColumns = map[models.SortField]string{
	models.SortCreatedAt:  "created_at",
	models.SortUpdatedAt:  "updated_at",
	models.SortStatus:     "status",
	models.SortEntityName: "LOWER(entity_name)",
}

// SQLStore persists cases in Postgres or sqlite. Writes join the caller's
// transaction when one is present in the context.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQL(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *SQLStore) q(query string) string {
	return database.Rebind(s.driver, query)
}

func (s *SQLStore) Create(ctx context.Context, c *models.Case) error {
	c.Version = 1
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, s.q(`
		INSERT INTO cases (
			id, client_ref, entity_name, business_unit, assigned_user,
			status, version, created_at, updated_at, document
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`),
		c.ID.String(), c.ClientRef, c.EntityName, c.BusinessUnit, c.AssignedUser,
		string(c.Status), c.Version, formatTime(c.CreatedAt), formatTime(c.UpdatedAt), string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *SQLStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	var (
		version int
		doc     string
	)
	err := s.execer(ctx).QueryRowContext(ctx, s.q(`SELECT version, document FROM cases WHERE id = ?`), caseID.String()).
		Scan(&version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("case %s: %w", caseID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	return decodeRow(version, doc)
}

func (s *SQLStore) Update(ctx context.Context, c *models.Case) error {
	expected := c.Version
	c.Version++
	doc, err := json.Marshal(c)
	if err != nil {
		c.Version = expected
		return fmt.Errorf("encode case: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, s.q(`
		UPDATE cases
		SET client_ref = ?, entity_name = ?, business_unit = ?, assigned_user = ?,
			status = ?, version = ?, updated_at = ?, document = ?
		WHERE id = ? AND version = ?
	`),
		c.ClientRef, c.EntityName, c.BusinessUnit, c.AssignedUser,
		string(c.Status), c.Version, formatTime(c.UpdatedAt), string(doc),
		c.ID.String(), expected,
	)
	if err != nil {
		c.Version = expected
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		c.Version = expected
		return fmt.Errorf("update case: %w", err)
	}
	if n == 1 {
		return nil
	}
	c.Version = expected

	var exists int
	err = s.execer(ctx).QueryRowContext(ctx, s.q(`SELECT 1 FROM cases WHERE id = ?`), c.ID.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("case %s: %w", c.ID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return fmt.Errorf("case %s changed since version %d: %w", c.ID, expected, sentinel.ErrConflict)
}

func (s *SQLStore) List(ctx context.Context, filter models.ListFilter) (models.Page, error) {
	if err := filter.Normalize(); err != nil {
		return models.Page{}, err
	}
	where, args := whereClause(filter)

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM cases`+where), args...).Scan(&total); err != nil {
		return models.Page{}, fmt.Errorf("count cases: %w", err)
	}

	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	query := `SELECT version, document FROM cases` + where +
		` ORDER BY ` + sortColumns[filter.SortBy] + ` ` + dir + `, id ASC LIMIT ? OFFSET ?`
	rows, err := s.execer(ctx).QueryContext(ctx, s.q(query), append(args, filter.PageSize, filter.Page*filter.PageSize)...)
	if err != nil {
		return models.Page{}, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	page := models.Page{Content: []*models.Case{}, TotalElements: total, Size: filter.PageSize, Number: filter.Page}
	for rows.Next() {
		var (
			version int
			doc     string
		)
		if err := rows.Scan(&version, &doc); err != nil {
			return models.Page{}, fmt.Errorf("scan case: %w", err)
		}
		c, err := decodeRow(version, doc)
		if err != nil {
			return models.Page{}, err
		}
		page.Content = append(page.Content, c)
	}
	if err := rows.Err(); err != nil {
		return models.Page{}, fmt.Errorf("list cases: %w", err)
	}
	return page, nil
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func whereClause(f models.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.BusinessUnit != "" {
		conds = append(conds, "LOWER(business_unit) = ?")
		args = append(args, strings.ToLower(f.BusinessUnit))
	}
	if f.AssignedUser != "" {
		conds = append(conds, "LOWER(assigned_user) = ?")
		args = append(args, strings.ToLower(f.AssignedUser))
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		conds = append(conds, `(LOWER(entity_name) LIKE ? ESCAPE '\' OR LOWER(id) LIKE ? ESCAPE '\' OR LOWER(client_ref) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeRow(version int, doc string) (*models.Case, error) {
	var c models.Case
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	c.Version = version
	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
