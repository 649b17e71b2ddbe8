package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "kycengine/pkg/domain"
	audit "kycengine/pkg/platform/audit"
	txcontext "kycengine/pkg/platform/tx"
)

// Schema creates the audit table. Applied by the database bootstrap.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              UUID PRIMARY KEY,
	category        TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	case_id         UUID NOT NULL,
	action          TEXT NOT NULL,
	actor           TEXT NOT NULL DEFAULT '',
	from_state      TEXT NOT NULL DEFAULT '',
	to_state        TEXT NOT NULL DEFAULT '',
	decision        TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL DEFAULT '',
	catalog_version TEXT NOT NULL DEFAULT '',
	request_id      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_case ON audit_events (case_id, timestamp);
`

// Store implements audit.Store on Postgres. Appends join the caller's
// transaction when one is present in the context.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, case_id, action, actor,
			from_state, to_state, decision, reason, catalog_version, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		uuid.UUID(event.CaseID),
		event.Action,
		event.Actor,
		event.FromState,
		event.ToState,
		event.Decision,
		event.Reason,
		event.CatalogVersion,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByCase(ctx context.Context, caseID id.CaseID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, case_id, action, actor,
			   from_state, to_state, decision, reason, catalog_version, request_id
		FROM audit_events
		WHERE case_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			category string
			caseUUID uuid.UUID
			event    audit.Event
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&caseUUID,
			&event.Action,
			&event.Actor,
			&event.FromState,
			&event.ToState,
			&event.Decision,
			&event.Reason,
			&event.CatalogVersion,
			&event.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.CaseID = id.CaseID(caseUUID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
