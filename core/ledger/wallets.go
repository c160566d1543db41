package ledger

import (
	"crypto"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"foundrchain/core"
	"foundrchain/core/audit"
	"foundrchain/core/config"
	"foundrchain/core/transaction"
	"foundrchain/core/wallet"
)

// WalletHandle is returned once from CreateWallet. PrivateKeyPEM is never
// persisted in the wallet record and is not retrievable afterwards.
type WalletHandle struct {
	WalletID      string `json:"walletId"`
	ParticipantID string `json:"participantId"`
	Algorithm     string `json:"algorithm"`
	PublicKeyPEM  string `json:"publicKey"`
	PrivateKeyPEM string `json:"privateKey"`
}

// Receipt acknowledges a transaction that was applied and queued.
type Receipt struct {
	ReceiptID    string           `json:"receiptId"`
	TxHash       string           `json:"txHash"`
	WalletID     string           `json:"walletId"`
	Kind         transaction.Kind `json:"kind"`
	Amount       decimal.Decimal  `json:"amount"`
	BalanceAfter decimal.Decimal  `json:"balanceAfter"`
	QueuedAt     time.Time        `json:"queuedAt"`
}

func (l *Ledger) algorithm() string {
	if l.cfg.KeyScheme == config.SchemeEd25519 {
		return core.AlgEd25519
	}
	return core.AlgRSA
}

// CreateWallet generates a key pair for participantID and registers its wallet.
func (l *Ledger) CreateWallet(participantID string) (WalletHandle, error) {
	done, err := l.begin()
	if err != nil {
		return WalletHandle{}, err
	}
	defer done()

	kp, err := core.GenerateKeyPair(l.algorithm(), l.cfg.RSABits)
	if err != nil {
		return WalletHandle{}, err
	}
	view, err := l.wallets.Create(participantID, kp.Algorithm, kp.PublicKeyPEM)
	if err != nil {
		return WalletHandle{}, err
	}
	if err := l.keyring.Put(view.ID, kp.Signer); err != nil {
		return WalletHandle{}, fmt.Errorf("store signing key for %s: %w", view.ID, err)
	}
	return WalletHandle{
		WalletID:      view.ID,
		ParticipantID: view.ParticipantID,
		Algorithm:     view.Algorithm,
		PublicKeyPEM:  view.PublicKeyPEM,
		PrivateKeyPEM: kp.PrivateKeyPEM,
	}, nil
}

// ImportSigningKey hands the node a caller-held private key for walletID.
// The key must match the wallet's recorded public key.
func (l *Ledger) ImportSigningKey(walletID, privateKeyPEM string) error {
	done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	signer, err := core.ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return err
	}
	if _, err := l.wallets.Get(walletID); err != nil {
		return err
	}
	if !l.wallets.MatchesKey(walletID, signer) {
		l.audit.LogEvent(audit.AuditEvent{
			EventType: audit.EventKeyImported,
			EntityID:  walletID,
			Result:    "failure",
			Reason:    "public key mismatch",
		})
		return fmt.Errorf("%w: key does not match wallet %s", ErrInvalidSignature, walletID)
	}
	if err := l.keyring.Put(walletID, signer); err != nil {
		return err
	}
	l.audit.LogEvent(audit.AuditEvent{EventType: audit.EventKeyImported, EntityID: walletID, Result: "success"})
	return nil
}

// GetWallet returns the public view of a wallet.
func (l *Ledger) GetWallet(walletID string) (wallet.PublicView, error) {
	done, err := l.begin()
	if err != nil {
		return wallet.PublicView{}, err
	}
	defer done()
	return l.wallets.Get(walletID)
}

// WalletIDs lists every known wallet.
func (l *Ledger) WalletIDs() []string {
	return l.wallets.List()
}

// RegisterAllocation credits alloc.Total to the wallet immediately and queues
// the signed registration for the next block.
func (l *Ledger) RegisterAllocation(walletID, participantID string, alloc transaction.Allocation) (Receipt, error) {
	done, err := l.begin()
	if err != nil {
		return Receipt{}, err
	}
	defer done()

	view, err := l.wallets.Get(walletID)
	if err != nil {
		return Receipt{}, err
	}
	if view.ParticipantID != participantID {
		return Receipt{}, fmt.Errorf("%w: %s does not own %s", ErrParticipantMismatch, participantID, walletID)
	}
	return l.submit(walletID, func(signer crypto.Signer) (*transaction.Transaction, error) {
		return l.builder.BuildRegistration(walletID, participantID, alloc, signer)
	})
}

// Withdraw debits amount immediately and queues the signed withdrawal. It
// fails with ErrInsufficientBalance when amount exceeds the balance.
func (l *Ledger) Withdraw(walletID string, amount decimal.Decimal, kind string) (Receipt, error) {
	done, err := l.begin()
	if err != nil {
		return Receipt{}, err
	}
	defer done()
	return l.submit(walletID, func(signer crypto.Signer) (*transaction.Transaction, error) {
		return l.builder.BuildWithdrawal(walletID, amount, kind, signer)
	})
}

// submit builds, verifies, applies and enqueues one transaction while holding
// the wallet lock. A failed enqueue restores the wallet.
func (l *Ledger) submit(walletID string, build func(crypto.Signer) (*transaction.Transaction, error)) (Receipt, error) {
	unlock, err := l.wallets.Lock(walletID)
	if err != nil {
		return Receipt{}, err
	}
	defer unlock()

	signer, err := l.keyring.Signer(walletID)
	if err != nil {
		return Receipt{}, err
	}
	tx, err := build(signer)
	if err != nil {
		return Receipt{}, err
	}
	if err := l.wallets.VerifyTransaction(tx); err != nil {
		return Receipt{}, err
	}

	view, prev, err := l.wallets.ApplyLocked(walletID, tx.Delta(), wallet.HistoryEntry{
		TxHash:    tx.Hash,
		Kind:      string(tx.Kind),
		Signature: tx.Signature.Value,
	})
	if err != nil {
		return Receipt{}, err
	}
	if err := l.mempool.Enqueue(tx); err != nil {
		if rerr := l.wallets.RestoreLocked(prev); rerr != nil {
			return Receipt{}, fmt.Errorf("enqueue %s: %w (restore failed: %v)", tx.Hash, err, rerr)
		}
		return Receipt{}, fmt.Errorf("enqueue %s: %w", tx.Hash, err)
	}

	return Receipt{
		ReceiptID:    uuid.NewString(),
		TxHash:       tx.Hash,
		WalletID:     walletID,
		Kind:         tx.Kind,
		Amount:       tx.Delta().Abs(),
		BalanceAfter: view.Balance,
		QueuedAt:     time.Now().UTC(),
	}, nil
}
