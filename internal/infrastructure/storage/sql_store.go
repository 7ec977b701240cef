package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ProposalLens/internal/domain"
	"ProposalLens/internal/ports"
)

const (
	cacheTable  = "kv_cache"
	keyColumn   = "cache_key"
	valueColumn = "cache_value"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_cache (
	cache_key   TEXT PRIMARY KEY,
	cache_value TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const upsertSuffix = "ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, updated_at = CURRENT_TIMESTAMP"

// SQLStore persists cache entries in a single key/value table. The same code
// serves SQLite and Postgres; only the placeholder format differs.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Store = (*SQLStore)(nil)

func newSQLStore(ctx context.Context, db *sql.DB, placeholder sq.PlaceholderFormat) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder).RunWith(db),
	}, nil
}

// Get returns the stored value; a missing key is found=false with no error.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.builder.
		Select(valueColumn).
		From(cacheTable).
		Where(sq.Eq{keyColumn: key}).
		QueryRowContext(ctx).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &domain.CacheError{Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

// Set overwrites unconditionally.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.builder.
		Insert(cacheTable).
		Columns(keyColumn, valueColumn).
		Values(key, value).
		Suffix(upsertSuffix).
		ExecContext(ctx)
	if err != nil {
		return &domain.CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error.
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	_, err := s.builder.
		Delete(cacheTable).
		Where(sq.Eq{keyColumn: key}).
		ExecContext(ctx)
	if err != nil {
		return &domain.CacheError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Clear drops every entry.
func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.builder.Delete(cacheTable).ExecContext(ctx); err != nil {
		return &domain.CacheError{Op: "clear", Key: "*", Err: err}
	}
	return nil
}

// Len counts stored entries.
func (s *SQLStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.builder.Select("COUNT(*)").From(cacheTable).QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
