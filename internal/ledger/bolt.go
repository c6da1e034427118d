package ledger

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("blobs")

// BoltBlobStore is the default durable medium: a single-file embedded bbolt
// database with one bucket of opaque blobs.
type BoltBlobStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path and ensures the blob
// bucket exists.
func OpenBolt(path string) (*BoltBlobStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blob bucket: %w", err)
	}

	return &BoltBlobStore{db: db}, nil
}

// Read returns the blob under key, or (nil, nil) when absent.
func (b *BoltBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, nil
}

// Write stores the blob under key, replacing any previous value.
func (b *BoltBlobStore) Write(ctx context.Context, key string, data []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database file.
func (b *BoltBlobStore) Close() error {
	return b.db.Close()
}
