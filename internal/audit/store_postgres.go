// Copyright (c) 2026 Trackly. All rights reserved.

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackly/trackly/internal/platform/dberr"
)

// PostgresStore implements the Store interface using pgx.
//
// Details are stored as JSONB; pgx serializes the map directly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of the audit Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/*
Append persists a new audit entry.

Parameters:
  - context: context.Context
  - entry: *Entry. ID and CreatedAt are filled in when zero.

Returns:
  - error: database errors only; there is no conflict surface.
*/
func (store *PostgresStore) Append(context context.Context, entry *Entry) error {
	const query = `
		INSERT INTO audit_logs (id, actor_id, action, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := store.pool.Exec(context, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.ResourceID,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "AuditEntry")
	}

	return nil
}

/*
List retrieves the most recent audit entries.

Parameters:
  - context: context.Context
  - limit: int. Maximum number of entries returned.

Returns:
  - []*Entry: newest first
  - error: database errors
*/
func (store *PostgresStore) List(context context.Context, limit int) ([]*Entry, error) {
	const query = `
		SELECT id, actor_id, action, resource_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := store.pool.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "AuditEntry")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.ResourceID,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "AuditEntry")
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "AuditEntry")
	}

	return entries, nil
}

// newEntryID mints a time-sortable unique id.
func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
