package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sessionSchema = `CREATE TABLE IF NOT EXISTS console_sessions (
	sid TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (sid, field)
)`

type sessionRow struct {
	Field string `db:"field"`
	Value string `db:"value"`
}

// SQLSessionRepository keeps console sessions in PostgreSQL, one row per field.
type SQLSessionRepository struct {
	db        *sqlx.DB
	retention time.Duration
	now       func() time.Time
}

// NewSQLSessionRepository constructs a PostgreSQL backed session repository.
func NewSQLSessionRepository(db *sqlx.DB, retention time.Duration) *SQLSessionRepository {
	return &SQLSessionRepository{db: db, retention: retention, now: time.Now}
}

// EnsureSchema creates the sessions table when missing.
func (r *SQLSessionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("create console_sessions: %w", err)
	}
	return nil
}

// Load returns the fields written within the retention window.
func (r *SQLSessionRepository) Load(ctx context.Context, sid string) (map[string]string, error) {
	const query = `SELECT field, value FROM console_sessions WHERE sid = $1 AND updated_at > $2`
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, sid, r.cutoff()); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Field] = row.Value
	}
	return values, nil
}

// Store upserts the given fields inside one transaction.
func (r *SQLSessionRepository) Store(ctx context.Context, sid string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	const query = `INSERT INTO console_sessions (sid, field, value, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (sid, field) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	now := r.now().UTC()
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, query, sid, name, fields[name], now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store session field %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

// Remove deletes the given fields for the session.
func (r *SQLSessionRepository) Remove(ctx context.Context, sid string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	const query = `DELETE FROM console_sessions WHERE sid = $1 AND field = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, sid, pq.Array(fields)); err != nil {
		return fmt.Errorf("remove session fields: %w", err)
	}
	return nil
}

// PurgeExpired drops rows older than the retention window.
func (r *SQLSessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM console_sessions WHERE updated_at <= $1`
	res, err := r.db.ExecContext(ctx, query, r.cutoff())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLSessionRepository) cutoff() time.Time {
	if r.retention <= 0 {
		return time.Time{}
	}
	return r.now().UTC().Add(-r.retention)
}
