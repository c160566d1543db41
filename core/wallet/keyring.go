package wallet

import (
	"crypto"
	"errors"
	"fmt"
	"sync"

	"foundrchain/core"
	"foundrchain/core/storage"
)

// Keyring holds private keys on behalf of wallets. Wallet records never do.
type Keyring interface {
	Put(walletID string, signer crypto.Signer) error
	Signer(walletID string) (crypto.Signer, error)
}

// MemoryKeyring keeps keys for the life of the process only.
type MemoryKeyring struct {
	mu   sync.RWMutex
	keys map[string]crypto.Signer
}

func NewMemoryKeyring() *MemoryKeyring {
	return &MemoryKeyring{keys: make(map[string]crypto.Signer)}
}

func (k *MemoryKeyring) Put(walletID string, signer crypto.Signer) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[walletID] = signer
	return nil
}

func (k *MemoryKeyring) Signer(walletID string) (crypto.Signer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.keys[walletID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSigningKeyUnavailable, walletID)
	}
	return s, nil
}

// SealedKeyring stores AES-GCM sealed PEM keys under the keyring prefix.
type SealedKeyring struct {
	store storage.StateBackend
	dek   []byte
	cache *MemoryKeyring
}

// NewSealedKeyring returns a keyring sealed with a 32-byte data encryption key.
func NewSealedKeyring(store storage.StateBackend, dek []byte) (*SealedKeyring, error) {
	if len(dek) != 32 {
		return nil, errors.New("keyring DEK must be 32 bytes")
	}
	return &SealedKeyring{store: store, dek: dek, cache: NewMemoryKeyring()}, nil
}

func (k *SealedKeyring) Put(walletID string, signer crypto.Signer) error {
	pem, err := core.MarshalPrivateKeyPEM(signer)
	if err != nil {
		return err
	}
	sealed, err := storage.Encrypt(k.dek, []byte(pem))
	if err != nil {
		return err
	}
	if err := k.store.Put(storage.PrefixKeyring+walletID, sealed); err != nil {
		return err
	}
	return k.cache.Put(walletID, signer)
}

func (k *SealedKeyring) Signer(walletID string) (crypto.Signer, error) {
	if s, err := k.cache.Signer(walletID); err == nil {
		return s, nil
	}
	sealed, err := k.store.Get(storage.PrefixKeyring + walletID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSigningKeyUnavailable, walletID)
	}
	if err != nil {
		return nil, err
	}
	pem, err := storage.Decrypt(k.dek, sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSigningKeyUnavailable, walletID, err)
	}
	s, err := core.ParsePrivateKeyPEM(string(pem))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSigningKeyUnavailable, walletID, err)
	}
	_ = k.cache.Put(walletID, s)
	return s, nil
}
