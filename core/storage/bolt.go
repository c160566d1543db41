package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketState = []byte("state")

// BoltStorage is the bbolt backend. All documents live in a single bucket.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage opens or creates the ledger database file at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %w", ErrPersistenceFailure, err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt %s: %w", ErrPersistenceFailure, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w: create bucket: %w (additionally failed to close db: %v)", ErrPersistenceFailure, err, closeErr)
		}
		return nil, fmt.Errorf("%w: create bucket: %w", ErrPersistenceFailure, err)
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bolt values are only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err == ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrPersistenceFailure, key, err)
	}
	return out, nil
}

func (s *BoltStorage) Put(key string, value []byte) error {
	return s.WriteBatch(map[string][]byte{key: value})
}

func (s *BoltStorage) WriteBatch(puts map[string][]byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		for k, v := range puts {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: batch write: %w", ErrPersistenceFailure, err)
	}
	return nil
}

func (s *BoltStorage) Keys(prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketState).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", ErrPersistenceFailure, prefix, err)
	}
	return keys, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
