package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// BlobStore is the PostgreSQL durable medium for the local ledger: a single
// table of opaque blobs keyed by name. The ledger store reads and writes one
// blob wholesale; no schema beyond that is required.
type BlobStore struct {
	db *sql.DB
}

// NewBlobStore wraps an open connection. The ledger_blobs table is created
// by migrations before this is used.
func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

// Read returns the blob under key, or (nil, nil) when absent.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM ledger_blobs WHERE key = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}

	return data, nil
}

// Write upserts the blob under key.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO ledger_blobs (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *BlobStore) Close() error {
	return s.db.Close()
}
