package vault

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "store"

// ErrNotFound is returned when a key has no stored value. Read paths that
// load whole collections treat it as "no data yet".
var ErrNotFound = errors.New("key not found")

// KV defines the interface for flat key-value storage operations.
// Each operation is atomic per key; there are no cross-key transactions.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(key string) (string, error)

	// Set stores value under key, overwriting any previous value
	Set(key, value string) error

	// RemoveMany deletes every listed key; absent keys are skipped
	RemoveMany(keys []string) error

	// ListKeys returns all stored keys
	ListKeys() ([]string, error)

	// Close closes the underlying store
	Close() error
}

// BoltKV implements the KV interface using BoltDB
type BoltKV struct {
	db *bbolt.DB
}

// NewBoltKV opens (or creates) a BoltDB file backing the key-value store
func NewBoltKV(path string) (*BoltKV, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltKV{db: db}, nil
}

// Get returns the value stored under key
func (b *BoltKV) Get(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key
func (b *BoltKV) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("writing key %s: %w", key, err)
		}
		return nil
	})
}

// RemoveMany deletes every listed key in one transaction
func (b *BoltKV) RemoveMany(keys []string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		for _, key := range keys {
			if err := bucket.Delete([]byte(key)); err != nil {
				return fmt.Errorf("deleting key %s: %w", key, err)
			}
		}
		return nil
	})
}

// ListKeys returns all stored keys
func (b *BoltKV) ListKeys() ([]string, error) {
	keys := make([]string, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the database connection
func (b *BoltKV) Close() error {
	return b.db.Close()
}
