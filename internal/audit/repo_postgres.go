package audit

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists audit entries into an insert-only table.
//
// Expected schema (enforce immutability at the database too):
//
//	CREATE TABLE audit_entries (
//	    id            UUID PRIMARY KEY,
//	    ts            TIMESTAMPTZ NOT NULL,
//	    subject_id    TEXT,
//	    role          TEXT,
//	    shop_id       TEXT,
//	    action        TEXT NOT NULL,
//	    category      TEXT NOT NULL,
//	    severity      TEXT NOT NULL,
//	    status        TEXT NOT NULL,
//	    ip_address    TEXT,
//	    path          TEXT,
//	    error_message TEXT,
//	    details       JSONB
//	);
//
// Recommended: a trigger or policy preventing UPDATE/DELETE, and time
// partitioning for retention.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) (*PostgresRepo, error) {
	if db == nil {
		return nil, errors.New("audit: db is required")
	}
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
		INSERT INTO audit_entries
			(id, ts, subject_id, role, shop_id, action, category, severity, status, ip_address, path, error_message, details)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, '')::jsonb)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Timestamp,
		e.SubjectID,
		e.Role,
		e.ShopID,
		e.Action,
		string(e.Category),
		string(e.Severity),
		string(e.Status),
		e.IPAddress,
		e.Path,
		e.ErrorMessage,
		e.Details,
	)
	return err
}
