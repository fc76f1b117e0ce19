package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetmail/internal/objstore"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is an objstore.Store kept in a single SQLite file. It
// stands in for S3 on a workstation.
type SQLiteRepository struct {
	db *sql.DB
}

var _ objstore.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements objstore.Store
func (r *SQLiteRepository) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM objects WHERE bucket = ? AND key = ?`, bucket, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, objstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return body, nil
}

// Put implements objstore.Store
func (r *SQLiteRepository) Put(ctx context.Context, bucket, key string, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO objects (bucket, key, body, size, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (bucket, key) DO UPDATE SET
			body = excluded.body,
			size = excluded.size,
			updated_at = CURRENT_TIMESTAMP`,
		bucket, key, body, len(body))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	slog.DebugContext(ctx, "Object stored in SQLite",
		"bucket", bucket,
		"key", key,
		"size", len(body))

	return nil
}

// Copy implements objstore.Store
func (r *SQLiteRepository) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	body, err := r.Get(ctx, bucket, srcKey)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dstKey, err)
	}
	return r.Put(ctx, bucket, dstKey, body)
}

// Keys lists the keys stored under bucket, sorted.
func (r *SQLiteRepository) Keys(ctx context.Context, bucket string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM objects WHERE bucket = ? ORDER BY key`, bucket)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", bucket, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
