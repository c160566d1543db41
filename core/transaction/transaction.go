package transaction

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"foundrchain/core"
)

var (
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMalformedTransaction = errors.New("malformed transaction")
)

// Kind tags which variant a Transaction carries.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindWithdrawal   Kind = "withdrawal"
)

// Registration records a founder allocation credited to a wallet.
type Registration struct {
	ParticipantID     string          `json:"participantId"`
	WalletID          string          `json:"walletId"`
	TotalAllocation   decimal.Decimal `json:"totalAllocation"`
	PersonalShare     decimal.Decimal `json:"personalShare"`
	ReinvestmentShare decimal.Decimal `json:"reinvestmentShare"`
}

// Withdrawal records value debited from a wallet.
type Withdrawal struct {
	WalletID       string          `json:"walletId"`
	Amount         decimal.Decimal `json:"amount"`
	WithdrawalKind string          `json:"withdrawalKind"`
}

// Transaction is immutable once built. Exactly one of Registration or
// Withdrawal is set, matching Kind.
type Transaction struct {
	Kind         Kind           `json:"kind"`
	Registration *Registration  `json:"registration,omitempty"`
	Withdrawal   *Withdrawal    `json:"withdrawal,omitempty"`
	Timestamp    int64          `json:"timestamp"` // unix milliseconds
	Nonce        string         `json:"nonce"`
	Signature    core.Signature `json:"signature"`
	Hash         string         `json:"hash"`
}

// canonical holds the signed fields in a fixed order.
type canonical struct {
	Kind         Kind          `json:"kind"`
	Registration *Registration `json:"registration,omitempty"`
	Withdrawal   *Withdrawal   `json:"withdrawal,omitempty"`
	Timestamp    int64         `json:"timestamp"`
	Nonce        string        `json:"nonce"`
}

// CanonicalPayload is the byte string that gets signed.
func (tx *Transaction) CanonicalPayload() ([]byte, error) {
	if err := tx.checkShape(); err != nil {
		return nil, err
	}
	return json.Marshal(canonical{
		Kind:         tx.Kind,
		Registration: tx.Registration,
		Withdrawal:   tx.Withdrawal,
		Timestamp:    tx.Timestamp,
		Nonce:        tx.Nonce,
	})
}

// ComputeHash returns H(payload || signature).
func (tx *Transaction) ComputeHash() (string, error) {
	payload, err := tx.CanonicalPayload()
	if err != nil {
		return "", err
	}
	return core.HashStrings(string(payload), tx.Signature.Value), nil
}

// WalletID returns the wallet the transaction applies to.
func (tx *Transaction) WalletID() string {
	switch tx.Kind {
	case KindRegistration:
		if tx.Registration != nil {
			return tx.Registration.WalletID
		}
	case KindWithdrawal:
		if tx.Withdrawal != nil {
			return tx.Withdrawal.WalletID
		}
	}
	return ""
}

// Delta is the signed balance change the transaction applies.
func (tx *Transaction) Delta() decimal.Decimal {
	switch tx.Kind {
	case KindRegistration:
		if tx.Registration != nil {
			return tx.Registration.TotalAllocation
		}
	case KindWithdrawal:
		if tx.Withdrawal != nil {
			return tx.Withdrawal.Amount.Neg()
		}
	}
	return decimal.Zero
}

func (tx *Transaction) checkShape() error {
	switch tx.Kind {
	case KindRegistration:
		if tx.Registration == nil || tx.Withdrawal != nil {
			return fmt.Errorf("%w: registration payload missing", ErrMalformedTransaction)
		}
	case KindWithdrawal:
		if tx.Withdrawal == nil || tx.Registration != nil {
			return fmt.Errorf("%w: withdrawal payload missing", ErrMalformedTransaction)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedTransaction, tx.Kind)
	}
	return nil
}

// Verify checks the signature against publicKeyPEM and the stored content hash.
func Verify(tx *Transaction, publicKeyPEM string) error {
	payload, err := tx.CanonicalPayload()
	if err != nil {
		return err
	}
	if !core.VerifySignature(tx.Signature, publicKeyPEM, payload) {
		return fmt.Errorf("%w: tx %s", ErrInvalidSignature, tx.Hash)
	}
	if want := core.HashStrings(string(payload), tx.Signature.Value); want != tx.Hash {
		return fmt.Errorf("%w: content hash mismatch for tx %s", ErrMalformedTransaction, tx.Hash)
	}
	return nil
}

// Hashes returns the content hashes of txs in order.
func Hashes(txs []*Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash
	}
	return out
}
