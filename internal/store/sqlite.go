package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a SQLite database. It backs
// deployments without a Redis server and the test suite. Key expiry is
// enforced lazily: expired rows read as absent and are purged on the
// next write to the same key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS list_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			list_key TEXT NOT NULL,
			value BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_list_items_key ON list_items(list_key, id);
	`)
	return err
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Get returns the value at key, treating expired rows as absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM kv WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	if expiresAt <= nowMillis() {
		return nil, false, nil
	}
	return value, true, nil
}

// SetNX writes value under key with a ttl only if no live row exists.
func (s *SQLiteStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite setnx %q: %w", key, err)
	}
	defer tx.Rollback()

	now := nowMillis()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM kv WHERE key = ? AND expires_at <= ?", key, now,
	); err != nil {
		return false, fmt.Errorf("sqlite setnx %q: %w", key, err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING",
		key, value, now+ttl.Milliseconds(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite setnx %q: %w", key, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite setnx %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite setnx %q: %w", key, err)
	}
	return inserted > 0, nil
}

// Expire resets the ttl of a live row; false when the key is gone.
func (s *SQLiteStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := nowMillis()
	res, err := s.db.ExecContext(ctx,
		"UPDATE kv SET expires_at = ? WHERE key = ? AND expires_at > ?",
		now+ttl.Milliseconds(), key, now,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite expire %q: %w", key, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite expire %q: %w", key, err)
	}
	return updated > 0, nil
}

// PushCapped inserts, trims and counts inside one transaction.
func (s *SQLiteStore) PushCapped(ctx context.Context, key string, value []byte, max int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite push %q: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO list_items (list_key, value) VALUES (?, ?)", key, value,
	); err != nil {
		return 0, fmt.Errorf("sqlite push %q: %w", key, err)
	}

	// Drop everything but the max newest entries.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM list_items WHERE list_key = ? AND id NOT IN (
			SELECT id FROM list_items WHERE list_key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, max,
	); err != nil {
		return 0, fmt.Errorf("sqlite push %q: %w", key, err)
	}

	var length int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM list_items WHERE list_key = ?", key,
	).Scan(&length); err != nil {
		return 0, fmt.Errorf("sqlite push %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite push %q: %w", key, err)
	}
	return length, nil
}

// List returns all values of the list at key, newest first.
func (s *SQLiteStore) List(ctx context.Context, key string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT value FROM list_items WHERE list_key = ? ORDER BY id DESC", key,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite list %q: %w", key, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("sqlite list %q: %w", key, err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list %q: %w", key, err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
