package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names used in the bbolt database.
const (
	BucketSettings  = "settings"
	BucketTransient = "transient"
	BucketAuthn     = "authenticator"
)

// DB wraps a bbolt database holding one bucket per namespace.
type DB struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at the given path and ensures
// all namespaces exist. The file is created with 0600 permissions.
func OpenBolt(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{BucketSettings, BucketTransient, BucketAuthn} {
			if _, bErr := tx.CreateBucketIfNotExists([]byte(b)); bErr != nil {
				return fmt.Errorf("create bucket %s: %w", b, bErr)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying bbolt database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Bucket returns a Store scoped to the named bucket.
func (d *DB) Bucket(name string) *BoltStore {
	return &BoltStore{db: d.db, bucket: []byte(name)}
}

// BoltStore implements Store on one bbolt bucket.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// Get returns a copy of the stored value, or ErrNotFound.
func (s *BoltStore) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s missing", s.bucket)
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid for the life of the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores the value under key.
func (s *BoltStore) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes every key in the bucket.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) != nil {
			if err := tx.DeleteBucket(s.bucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}
