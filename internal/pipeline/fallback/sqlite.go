package fallback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend keeps pending writes in a local SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open fallback db: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pending_writes (
		namespace TEXT NOT NULL,
		lead_id TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, lead_id)
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate fallback db: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Fetch(ctx context.Context, namespace, key string) ([]byte, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM pending_writes WHERE namespace = ? AND lead_id = ?`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pending write: %w", err)
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Save(ctx context.Context, namespace, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO pending_writes (namespace, lead_id, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, lead_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, namespace, key, string(value))
	if err != nil {
		return fmt.Errorf("save pending write: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Remove(ctx context.Context, namespace, key string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM pending_writes WHERE namespace = ? AND lead_id = ?`,
		namespace, key,
	); err != nil {
		return fmt.Errorf("remove pending write: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT lead_id, value FROM pending_writes WHERE namespace = ? ORDER BY updated_at`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("load pending writes: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan pending write: %w", err)
		}
		out[key] = []byte(value)
	}
	return out, rows.Err()
}

var _ Backend = (*SQLiteBackend)(nil)
