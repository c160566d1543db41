package mempool

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"foundrchain/core/storage"
	"foundrchain/core/transaction"
)

var ErrDuplicateTx = errors.New("transaction already pending")

// Mempool is the ordered queue of pending transactions. Every mutation is
// written through to the mempool document before it becomes visible.
type Mempool struct {
	mu    sync.Mutex
	store storage.StateBackend
	txs   []*transaction.Transaction
	seen  map[string]struct{} // tx hash set
}

// Load restores the pending queue from store. An absent document is an empty queue.
func Load(store storage.StateBackend) (*Mempool, error) {
	mp := &Mempool{store: store, seen: make(map[string]struct{})}
	raw, err := store.Get(storage.KeyMempool)
	if errors.Is(err, storage.ErrNotFound) {
		return mp, nil
	}
	if err != nil {
		return nil, err
	}
	txs, err := transaction.DecodeDocuments(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: load mempool: %w", storage.ErrPersistenceFailure, err)
	}
	for _, tx := range txs {
		mp.txs = append(mp.txs, tx)
		mp.seen[tx.Hash] = struct{}{}
	}
	log.Printf("[MEMPOOL] Restored %d pending transaction(s)", len(mp.txs))
	return mp, nil
}

// Enqueue appends tx and persists the queue.
func (mp *Mempool) Enqueue(tx *transaction.Transaction) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if _, exists := mp.seen[tx.Hash]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTx, tx.Hash)
	}
	next := append(append([]*transaction.Transaction(nil), mp.txs...), tx)
	if err := mp.persist(next); err != nil {
		return err
	}
	mp.txs = next
	mp.seen[tx.Hash] = struct{}{}
	return nil
}

// DrainAll empties the queue and returns its contents in FIFO order.
func (mp *Mempool) DrainAll() ([]*transaction.Transaction, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.txs) == 0 {
		return nil, nil
	}
	if err := mp.persist(nil); err != nil {
		return nil, err
	}
	drained := mp.txs
	mp.txs = nil
	mp.seen = make(map[string]struct{})
	return drained, nil
}

// Requeue puts txs back at the front of the queue, ahead of anything
// enqueued since they were drained.
func (mp *Mempool) Requeue(txs []*transaction.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	next := make([]*transaction.Transaction, 0, len(txs)+len(mp.txs))
	for _, tx := range txs {
		if _, exists := mp.seen[tx.Hash]; !exists {
			next = append(next, tx)
		}
	}
	next = append(next, mp.txs...)
	if err := mp.persist(next); err != nil {
		return err
	}
	mp.txs = next
	for _, tx := range next {
		mp.seen[tx.Hash] = struct{}{}
	}
	return nil
}

// GetTx returns a pending transaction by hash.
func (mp *Mempool) GetTx(hash string) (*transaction.Transaction, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for _, tx := range mp.txs {
		if tx.Hash == hash {
			return tx, true
		}
	}
	return nil, false
}

// All returns the pending transactions in queue order.
func (mp *Mempool) All() []*transaction.Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]*transaction.Transaction(nil), mp.txs...)
}

func (mp *Mempool) Len() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.txs)
}

func (mp *Mempool) persist(txs []*transaction.Transaction) error {
	if txs == nil {
		txs = []*transaction.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("%w: encode mempool: %w", storage.ErrPersistenceFailure, err)
	}
	return mp.store.Put(storage.KeyMempool, data)
}
