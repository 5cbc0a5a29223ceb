package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fusionguard/core/kv"
)

// SQLBackend keeps kv scopes in the kv_entries table.
type SQLBackend struct {
	db  *DB
	now func() time.Time
}

func NewSQLBackend(db *DB) *SQLBackend {
	return &SQLBackend{db: db, now: time.Now}
}

func (b *SQLBackend) Scope(name string) kv.Storage {
	return &sqlScope{backend: b, scope: name}
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

func (b *SQLBackend) upsertQuery() string {
	if b.db.Dialect == DialectMySQL {
		return `INSERT INTO kv_entries(scope, entry_key, entry_value, updated_unix) VALUES(?,?,?,?)
			ON DUPLICATE KEY UPDATE entry_value=VALUES(entry_value), updated_unix=VALUES(updated_unix)`
	}
	return `INSERT INTO kv_entries(scope, entry_key, entry_value, updated_unix) VALUES(?,?,?,?)
		ON CONFLICT(scope, entry_key) DO UPDATE SET entry_value=excluded.entry_value, updated_unix=excluded.updated_unix`
}

// PurgeIdle removes every scope under prefix whose newest entry was written
// or touched before cutoff.
func (b *SQLBackend) PurgeIdle(ctx context.Context, prefix string, cutoff time.Time) (int64, error) {
	like := prefix + "%"
	res, err := b.db.ExecContext(ctx, `
		DELETE FROM kv_entries
		WHERE scope LIKE ?
			AND scope IN (
				SELECT scope FROM (
					SELECT scope FROM kv_entries
					WHERE scope LIKE ?
					GROUP BY scope
					HAVING MAX(updated_unix) < ?
				) stale
			)`, like, like, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqlScope struct {
	backend *SQLBackend
	scope   string
}

func (s *sqlScope) Get(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.backend.db.QueryRowContext(ctx, `SELECT entry_value FROM kv_entries WHERE scope=? AND entry_key=?`, s.scope, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *sqlScope) Set(ctx context.Context, key, value string) error {
	_, err := s.backend.db.ExecContext(ctx, s.backend.upsertQuery(), s.scope, key, value, s.backend.now().UTC().Unix())
	return err
}

func (s *sqlScope) Touch(ctx context.Context, key string) error {
	_, err := s.backend.db.ExecContext(ctx, `UPDATE kv_entries SET updated_unix=? WHERE scope=? AND entry_key=?`,
		s.backend.now().UTC().Unix(), s.scope, key)
	return err
}

func (s *sqlScope) Remove(ctx context.Context, key string) error {
	_, err := s.backend.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE scope=? AND entry_key=?`, s.scope, key)
	return err
}
