package extstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db     *sql.DB
	limits Limits
}

// OpenSQLite opens (creating if needed) the database at dsn. Use
// "file::memory:?cache=shared" for a throwaway store.
func OpenSQLite(ctx context.Context, dsn string, limits Limits) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// modernc/sqlite connections do not share in-memory databases unless
	// asked to; one connection keeps every statement on the same one.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, limits: limits}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS ext_state (
        scope TEXT NOT NULL,
        section TEXT NOT NULL,
        key TEXT NOT NULL,
        value TEXT NOT NULL,
        PRIMARY KEY (scope, section, key)
    );`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate ext_state: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, scope, section, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM ext_state WHERE scope = ? AND section = ? AND key = ?`,
		scope, section, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, scope, section, key, value string) error {
	if err := s.limits.check(section, key, value); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO ext_state (scope, section, key, value) VALUES (?, ?, ?, ?)
        ON CONFLICT (scope, section, key) DO UPDATE SET value = excluded.value`,
		scope, section, key, value)
	return err
}

func (s *SQLite) Delete(ctx context.Context, scope, section, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ext_state WHERE scope = ? AND section = ? AND key = ?`,
		scope, section, key)
	return err
}

func (s *SQLite) Keys(ctx context.Context, scope, section string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM ext_state WHERE scope = ? AND section = ? ORDER BY key`,
		scope, section)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLite) Close() error {
	return s.db.Close()
}
