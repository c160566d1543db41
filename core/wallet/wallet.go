package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"foundrchain/types/ids"
)

var (
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")
)

// Wallet is the persisted wallet record. It holds the public key only.
type Wallet struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participantId"`
	Algorithm     string          `json:"algorithm"`
	PublicKeyPEM  string          `json:"publicKey"`
	Balance       decimal.Decimal `json:"balance"`
	History       []HistoryEntry  `json:"history"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// HistoryEntry is one signed balance delta.
type HistoryEntry struct {
	TxHash       string          `json:"txHash"`
	Kind         string          `json:"kind"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Signature    string          `json:"signature,omitempty"`
	At           time.Time       `json:"at"`
}

// PublicView is what callers see of a wallet.
type PublicView struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participantId"`
	Algorithm     string          `json:"algorithm"`
	PublicKeyPEM  string          `json:"publicKey"`
	Balance       decimal.Decimal `json:"balance"`
	History       []HistoryEntry  `json:"history"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// DeriveID computes the wallet id from the public key and participant id.
func DeriveID(publicKeyPEM, participantID string) string {
	id := ids.Concat([]byte(publicKeyPEM), []byte(participantID))
	return "wal_" + id.String()[:40]
}

func (w *Wallet) clone() *Wallet {
	c := *w
	c.History = append([]HistoryEntry(nil), w.History...)
	return &c
}

func (w *Wallet) view() PublicView {
	return PublicView{
		ID:            w.ID,
		ParticipantID: w.ParticipantID,
		Algorithm:     w.Algorithm,
		PublicKeyPEM:  w.PublicKeyPEM,
		Balance:       w.Balance,
		History:       append([]HistoryEntry(nil), w.History...),
		Active:        w.Active,
		CreatedAt:     w.CreatedAt,
	}
}
