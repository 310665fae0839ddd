package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);`

// Backend persists key/value pairs in a single SQLite table. It implements
// persistence.Backend.
type Backend struct {
	pool  *ConnectionPool
	retry *RetryHelper
	now   func() time.Time
}

// Open opens the database at path with the default configuration and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Backend, error) {
	return OpenWithConfig(ctx, DefaultConfig(path))
}

// OpenWithConfig opens a backend using an explicit configuration.
func OpenWithConfig(ctx context.Context, config Config) (*Backend, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	backend := &Backend{
		pool:  pool,
		retry: NewRetryHelper(DefaultRetryConfig()),
		now:   time.Now,
	}
	if err := backend.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return backend, nil
}

// Migrate creates the storage table when missing.
func (b *Backend) Migrate(ctx context.Context) error {
	return b.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to create local_storage table: %w", err)
		}
		return nil
	})
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.pool.Close()
}

// Get returns the value stored under key or persistence.ErrNotFound.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.retry.WithRetry(ctx, func() error {
		return b.pool.DB().QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	return b.retry.WithRetry(ctx, func() error {
		_, err := b.pool.DB().ExecContext(ctx, `
INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, b.now().UnixMilli())
		return err
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.retry.WithRetry(ctx, func() error {
		_, err := b.pool.DB().ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key)
		return err
	})
}

// Keys lists every stored key in lexical order.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.pool.DB().QueryContext(ctx, `SELECT key FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
