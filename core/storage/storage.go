package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrPersistenceFailure wraps every backend read or write error.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrNotFound is returned for absent keys.
	ErrNotFound = errors.New("key not found")
)

// Document keys of the persisted state layout.
const (
	KeyChainLength = "chain:length"
	KeyMempool     = "mempool"
	KeyNetwork     = "network"
	PrefixBlock    = "block:"
	PrefixWallet   = "wallet:"
	PrefixKeyring  = "keyring:"
)

// BlockKey is the key a block is stored under.
func BlockKey(index uint64) string {
	return fmt.Sprintf("%s%020d", PrefixBlock, index)
}

// StateBackend abstracts the persistent key-value store for ledger state.
type StateBackend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// WriteBatch applies all puts atomically.
	WriteBatch(puts map[string][]byte) error
	// Keys lists every key with the given prefix in ascending order.
	Keys(prefix string) ([]string, error)
	Close() error
}

// Storage is the LevelDB backend.
type Storage struct {
	db *leveldb.DB
}

// NewStorage opens (or creates) a LevelDB database at path.
func NewStorage(path string) (*Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %w", ErrPersistenceFailure, path, err)
	}
	return &Storage{db: db}, nil
}

// NewMemoryStorage returns a LevelDB backend that lives in memory only.
func NewMemoryStorage() *Storage {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &Storage{db: db}
}

// Get retrieves a value by key from LevelDB.
func (s *Storage) Get(key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrPersistenceFailure, key, err)
	}
	return v, nil
}

// Put stores a key-value pair in LevelDB.
func (s *Storage) Put(key string, value []byte) error {
	if err := s.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrPersistenceFailure, key, err)
	}
	return nil
}

func (s *Storage) WriteBatch(puts map[string][]byte) error {
	batch := new(leveldb.Batch)
	for k, v := range puts {
		batch.Put([]byte(k), v)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: batch write: %w", ErrPersistenceFailure, err)
	}
	return nil
}

func (s *Storage) Keys(prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", ErrPersistenceFailure, prefix, err)
	}
	return keys, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Open opens the backend named by kind ("leveldb", "bolt" or "memory") under dir.
func Open(kind, dir string) (StateBackend, error) {
	switch strings.ToLower(kind) {
	case "", "leveldb":
		s, err := NewStorage(filepath.Join(dir, "leveldb"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bolt":
		s, err := NewBoltStorage(filepath.Join(dir, "ledger.bolt"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// GetJSON decodes the document at key into v. It returns ErrNotFound when absent.
func GetJSON(b StateBackend, key string, v interface{}) error {
	data, err := b.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrPersistenceFailure, key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(b StateBackend, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersistenceFailure, key, err)
	}
	return b.Put(key, data)
}
