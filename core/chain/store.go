package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"foundrchain/core/block"
	"foundrchain/core/storage"
	"foundrchain/core/transaction"
)

// Store is the append-only sequence of committed blocks.
type Store struct {
	mu      sync.RWMutex
	backend storage.StateBackend
	blocks  []*block.Block
}

// Load restores the chain from backend. An absent chain yields an empty store.
func Load(backend storage.StateBackend) (*Store, error) {
	s := &Store{backend: backend}
	raw, err := backend.Get(storage.KeyChainLength)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: chain length %q: %w", storage.ErrPersistenceFailure, raw, err)
	}
	for i := uint64(0); i < n; i++ {
		b, err := loadBlock(backend, i)
		if err != nil {
			return nil, err
		}
		s.blocks = append(s.blocks, b)
	}
	log.Printf("[CHAIN] Loaded %d block(s)", len(s.blocks))
	return s, nil
}

func loadBlock(backend storage.StateBackend, index uint64) (*block.Block, error) {
	key := storage.BlockKey(index)
	data, err := backend.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d: %w", storage.ErrPersistenceFailure, index, err)
	}
	b, err := block.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode block %d: %w", storage.ErrPersistenceFailure, index, err)
	}
	var body struct {
		Transactions json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: decode block %d: %w", storage.ErrPersistenceFailure, index, err)
	}
	if len(body.Transactions) > 0 && string(body.Transactions) != "null" {
		txs, err := transaction.DecodeDocuments(body.Transactions)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %w", storage.ErrPersistenceFailure, index, err)
		}
		b.Transactions = txs
	}
	return b, nil
}

// Append adds b to the tip and persists it with the new length in one batch.
func (s *Store) Append(b *block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := uint64(len(s.blocks))
	if b.Index != want {
		return fmt.Errorf("block index %d does not extend chain of length %d", b.Index, want)
	}
	if want > 0 && b.PreviousHash != s.blocks[want-1].Hash {
		return fmt.Errorf("block %d previous hash %s does not match tip %s", b.Index, b.PreviousHash, s.blocks[want-1].Hash)
	}
	data, err := b.Serialize()
	if err != nil {
		return fmt.Errorf("%w: encode block %d: %w", storage.ErrPersistenceFailure, b.Index, err)
	}
	if err := s.backend.WriteBatch(map[string][]byte{
		storage.BlockKey(b.Index): data,
		storage.KeyChainLength:    []byte(strconv.FormatUint(want+1, 10)),
	}); err != nil {
		return err
	}
	s.blocks = append(s.blocks, b)
	return nil
}

// Len is the number of committed blocks.
func (s *Store) Len() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.blocks))
}

// Tip returns the latest block, or nil for an empty chain.
func (s *Store) Tip() *block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Get returns the block at index.
func (s *Store) Get(index uint64) (*block.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.blocks)) {
		return nil, false
	}
	return s.blocks[index], true
}

// Latest returns up to n blocks ending at the tip, oldest first.
func (s *Store) Latest(n int) []*block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(s.blocks) - n
	if start < 0 {
		start = 0
	}
	return append([]*block.Block(nil), s.blocks[start:]...)
}

// Blocks returns a snapshot of the whole chain.
func (s *Store) Blocks() []*block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*block.Block(nil), s.blocks...)
}
