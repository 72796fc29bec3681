// File: internal/infra/db/postgres/kv_store.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"conversation-store/internal/domain"
	"conversation-store/internal/domain/ports/repository"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// querier is the subset of *pgxpool.Pool (and pgx.Tx) the store needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

var _ repository.KVStore = (*KVStore)(nil)

// KVStore keeps each key as one row of the kv_store table.
type KVStore struct {
	db querier
}

func NewKVStore(db querier) *KVStore {
	return &KVStore{db: db}
}

// EnsureSchema creates the kv_store table when it does not exist yet.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, kvSchema); err != nil {
		return wrapPgErr("ensure schema", err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM kv_store WHERE key = $1;`
	var v string
	if err := s.db.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", wrapPgErr("kv get", err)
	}
	return v, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.db.Exec(ctx, q, key, value); err != nil {
		return wrapPgErr("kv set", err)
	}
	return nil
}

func (s *KVStore) Del(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE key = $1;`
	if _, err := s.db.Exec(ctx, q, key); err != nil {
		return wrapPgErr("kv del", err)
	}
	return nil
}

func wrapPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s (sqlstate %s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
