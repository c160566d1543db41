package wallet

import (
	"crypto"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"foundrchain/core"
	"foundrchain/core/audit"
	"foundrchain/core/storage"
)

// Manager owns every wallet record. Balance mutations on one wallet are
// serialized by that wallet's lock; the map itself is guarded by mu.
type Manager struct {
	store storage.StateBackend
	audit audit.AuditLogger

	mu      sync.RWMutex
	wallets map[string]*Wallet
	locks   map[string]*sync.Mutex
}

// NewManager loads every persisted wallet from store.
func NewManager(store storage.StateBackend, auditLogger audit.AuditLogger) (*Manager, error) {
	if auditLogger == nil {
		auditLogger = audit.NewStdoutAuditLogger()
	}
	m := &Manager{
		store:   store,
		audit:   auditLogger,
		wallets: make(map[string]*Wallet),
		locks:   make(map[string]*sync.Mutex),
	}
	keys, err := store.Keys(storage.PrefixWallet)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		var w Wallet
		if err := storage.GetJSON(store, k, &w); err != nil {
			return nil, fmt.Errorf("load %s: %w", k, err)
		}
		m.wallets[w.ID] = &w
		m.locks[w.ID] = &sync.Mutex{}
	}
	log.Printf("[WALLET] Loaded %d wallet(s)", len(m.wallets))
	return m, nil
}

// Create registers a wallet for participantID with the given public key.
func (m *Manager) Create(participantID, algorithm, publicKeyPEM string) (PublicView, error) {
	if strings.TrimSpace(participantID) == "" {
		return PublicView{}, errors.New("participant id is required")
	}
	w := &Wallet{
		ID:            DeriveID(publicKeyPEM, participantID),
		ParticipantID: participantID,
		Algorithm:     algorithm,
		PublicKeyPEM:  publicKeyPEM,
		Balance:       decimal.Zero,
		History:       []HistoryEntry{},
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.wallets[w.ID]; exists {
		return PublicView{}, fmt.Errorf("wallet %s already exists", w.ID)
	}
	if err := storage.PutJSON(m.store, storage.PrefixWallet+w.ID, w); err != nil {
		return PublicView{}, err
	}
	m.wallets[w.ID] = w
	m.locks[w.ID] = &sync.Mutex{}
	log.Printf("[WALLET] Created wallet %s for participant %s", w.ID, participantID)
	return w.view(), nil
}

// Get returns the public view of a wallet.
func (m *Manager) Get(id string) (PublicView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[id]
	if !ok {
		return PublicView{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return w.view(), nil
}

// PublicKey returns the wallet's PEM public key.
func (m *Manager) PublicKey(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return w.PublicKeyPEM, nil
}

// List returns every wallet id.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.wallets))
	for id := range m.wallets {
		out = append(out, id)
	}
	return out
}

// Lock acquires the wallet's mutation lock. Call the returned func to release.
func (m *Manager) Lock(id string) (func(), error) {
	m.mu.RLock()
	l, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	l.Lock()
	return l.Unlock, nil
}

// Credit adds amount to the wallet balance.
func (m *Manager) Credit(id string, amount decimal.Decimal, entry HistoryEntry) (PublicView, error) {
	if !amount.IsPositive() {
		return PublicView{}, fmt.Errorf("%w: credit must be positive, got %s", ErrInvalidAmount, amount)
	}
	unlock, err := m.Lock(id)
	if err != nil {
		return PublicView{}, err
	}
	defer unlock()
	v, _, err := m.ApplyLocked(id, amount, entry)
	return v, err
}

// Debit subtracts amount, failing with ErrInsufficientBalance when amount > balance.
func (m *Manager) Debit(id string, amount decimal.Decimal, entry HistoryEntry) (PublicView, error) {
	if !amount.IsPositive() {
		return PublicView{}, fmt.Errorf("%w: debit must be positive, got %s", ErrInvalidAmount, amount)
	}
	unlock, err := m.Lock(id)
	if err != nil {
		return PublicView{}, err
	}
	defer unlock()
	v, _, err := m.ApplyLocked(id, amount.Neg(), entry)
	return v, err
}

// ApplyLocked applies delta, persists the record, and only then swaps it into
// memory. It returns the new view and the prior record for RestoreLocked.
// The caller must hold the wallet lock.
func (m *Manager) ApplyLocked(id string, delta decimal.Decimal, entry HistoryEntry) (PublicView, *Wallet, error) {
	m.mu.RLock()
	cur, ok := m.wallets[id]
	m.mu.RUnlock()
	if !ok {
		return PublicView{}, nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}

	next := cur.clone()
	next.Balance = cur.Balance.Add(delta)
	if next.Balance.IsNegative() {
		m.audit.LogEvent(audit.AuditEvent{
			EventType: audit.EventDebitRejected,
			EntityID:  id,
			Result:    "failure",
			Reason:    ErrInsufficientBalance.Error(),
			Metadata:  map[string]string{"requested": delta.Neg().String(), "balance": cur.Balance.String()},
		})
		return PublicView{}, nil, fmt.Errorf("%w: wallet %s has %s, requested %s", ErrInsufficientBalance, id, cur.Balance, delta.Neg())
	}
	entry.Delta = delta
	entry.BalanceAfter = next.Balance
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	next.History = append(next.History, entry)

	if err := storage.PutJSON(m.store, storage.PrefixWallet+id, next); err != nil {
		return PublicView{}, nil, err
	}
	m.mu.Lock()
	m.wallets[id] = next
	m.mu.Unlock()

	eventType := audit.EventCredit
	if delta.IsNegative() {
		eventType = audit.EventDebit
	}
	m.audit.LogEvent(audit.AuditEvent{
		EventType: eventType,
		EntityID:  id,
		Result:    "success",
		Metadata:  map[string]string{"tx": entry.TxHash, "delta": delta.String(), "balance": next.Balance.String()},
	})
	return next.view(), cur, nil
}

// RestoreLocked puts back a record returned by ApplyLocked. The caller must
// hold the wallet lock.
func (m *Manager) RestoreLocked(prev *Wallet) error {
	if err := storage.PutJSON(m.store, storage.PrefixWallet+prev.ID, prev); err != nil {
		return err
	}
	m.mu.Lock()
	m.wallets[prev.ID] = prev
	m.mu.Unlock()
	m.audit.LogEvent(audit.AuditEvent{
		EventType: audit.EventRollback,
		EntityID:  prev.ID,
		Result:    "success",
		Metadata:  map[string]string{"balance": prev.Balance.String()},
	})
	return nil
}

// MatchesKey reports whether signer belongs to the wallet.
func (m *Manager) MatchesKey(id string, signer crypto.Signer) bool {
	pem, err := m.PublicKey(id)
	if err != nil {
		return false
	}
	return core.SamePublicKey(signer, pem)
}
