package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLDialect selects the query syntax a SQLStore generates.
type SQLDialect int

const (
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite SQLDialect = iota
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
)

// SQLStore persists snapshots in a relational table. It works with any
// database/sql driver. Requires a table with schema:
//
//	CREATE TABLE weft_snapshots (
//	    context_key TEXT PRIMARY KEY,
//	    saved_at    TEXT NOT NULL,
//	    payload     BLOB NOT NULL
//	);
//
// CreateTable issues a dialect-appropriate version of that statement.
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	ownsDB    bool
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName string
	dialect   SQLDialect
}

// WithSQLTableName sets the snapshot table name.
// Default: "weft_snapshots".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// NewSQLStore wraps a caller-owned database handle. Close leaves the
// handle open.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName: "weft_snapshots",
		dialect:   DialectSQLite,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &SQLStore{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
	}
}

// OpenSQLite opens a SQLite database at path, ensures the snapshot
// table exists, and returns a store that owns the handle. The driver
// must be registered under "sqlite" (modernc.org/sqlite).
func OpenSQLite(ctx context.Context, path string, opts ...SQLStoreOption) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open sqlite: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// A second pool connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}
	store := NewSQLStore(db, append(opts, WithSQLDialect(DialectSQLite))...)
	store.ownsDB = true
	if err := store.CreateTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Save upserts the encoded snapshot under its context key.
func (s *SQLStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (context_key, saved_at, payload)
			VALUES ($1, $2, $3)
			ON CONFLICT (context_key) DO UPDATE SET
				saved_at = EXCLUDED.saved_at,
				payload = EXCLUDED.payload
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (context_key, saved_at, payload)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE
				saved_at = VALUES(saved_at),
				payload = VALUES(payload)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (context_key, saved_at, payload)
			VALUES (?, ?, ?)
		`, s.tableName)
	}

	_, err = s.db.ExecContext(ctx, query, snap.Context, snap.SavedAt, data)
	return err
}

// Load retrieves and decodes the snapshot for contextKey.
func (s *SQLStore) Load(ctx context.Context, contextKey string) (*Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE context_key = %s`,
		s.tableName, s.placeholder(1))

	var data []byte
	err := s.db.QueryRowContext(ctx, query, contextKey).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, contextKey)
		}
		return nil, err
	}
	return Decode(data)
}

// Delete removes the snapshot row. Deleting an absent key is not an
// error.
func (s *SQLStore) Delete(ctx context.Context, contextKey string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE context_key = %s`,
		s.tableName, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, contextKey)
	return err
}

// List returns the stored context keys sorted.
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT context_key FROM %s ORDER BY context_key`, s.tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database handle when the store opened it itself.
func (s *SQLStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// CreateTable creates the snapshot table if it doesn't exist.
// Convenience for development and tests.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				context_key VARCHAR(128) PRIMARY KEY,
				saved_at    TIMESTAMP WITH TIME ZONE NOT NULL,
				payload     BYTEA NOT NULL
			)
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				context_key VARCHAR(128) PRIMARY KEY,
				saved_at    DATETIME NOT NULL,
				payload     BLOB NOT NULL
			)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				context_key TEXT PRIMARY KEY,
				saved_at    TEXT NOT NULL,
				payload     BLOB NOT NULL
			)
		`, s.tableName)
	}
	_, err := s.db.ExecContext(ctx, query)
	return err
}
