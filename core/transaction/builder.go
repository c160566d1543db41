package transaction

import (
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"foundrchain/core"
)

var ErrInvalidAllocation = errors.New("invalid allocation")

// Allocation is the caller input for a registration. Nil shares fall back to
// the builder's default split.
type Allocation struct {
	Total             decimal.Decimal
	PersonalShare     *decimal.Decimal
	ReinvestmentShare *decimal.Decimal
}

// Builder constructs and signs transactions.
type Builder struct {
	PersonalShare     decimal.Decimal
	ReinvestmentShare decimal.Decimal
	Now               func() time.Time
}

// NewBuilder returns a builder with the given default share ratios.
func NewBuilder(personal, reinvest decimal.Decimal) *Builder {
	return &Builder{PersonalShare: personal, ReinvestmentShare: reinvest, Now: time.Now}
}

// BuildRegistration builds and signs a registration of alloc for walletID.
func (b *Builder) BuildRegistration(walletID, participantID string, alloc Allocation, signer crypto.Signer) (*Transaction, error) {
	if strings.TrimSpace(participantID) == "" {
		return nil, fmt.Errorf("%w: participant id is required", ErrInvalidAllocation)
	}
	if !alloc.Total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive, got %s", ErrInvalidAllocation, alloc.Total)
	}
	personal := alloc.Total.Mul(b.PersonalShare)
	reinvest := alloc.Total.Mul(b.ReinvestmentShare)
	if alloc.PersonalShare != nil || alloc.ReinvestmentShare != nil {
		if alloc.PersonalShare == nil || alloc.ReinvestmentShare == nil {
			return nil, fmt.Errorf("%w: both share overrides must be given", ErrInvalidAllocation)
		}
		personal, reinvest = *alloc.PersonalShare, *alloc.ReinvestmentShare
		if personal.IsNegative() || reinvest.IsNegative() || !personal.Add(reinvest).Equal(alloc.Total) {
			return nil, fmt.Errorf("%w: shares must be non-negative and sum to %s", ErrInvalidAllocation, alloc.Total)
		}
	}

	tx := &Transaction{
		Kind: KindRegistration,
		Registration: &Registration{
			ParticipantID:     participantID,
			WalletID:          walletID,
			TotalAllocation:   alloc.Total,
			PersonalShare:     personal,
			ReinvestmentShare: reinvest,
		},
	}
	return b.seal(tx, signer)
}

// BuildWithdrawal builds and signs a withdrawal. The balance check belongs to
// the caller, which holds the wallet lock.
func (b *Builder) BuildWithdrawal(walletID string, amount decimal.Decimal, kind string, signer crypto.Signer) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive, got %s", ErrInvalidAllocation, amount)
	}
	if kind == "" {
		kind = "standard"
	}
	tx := &Transaction{
		Kind: KindWithdrawal,
		Withdrawal: &Withdrawal{
			WalletID:       walletID,
			Amount:         amount,
			WithdrawalKind: kind,
		},
	}
	return b.seal(tx, signer)
}

func (b *Builder) seal(tx *Transaction, signer crypto.Signer) (*Transaction, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	tx.Timestamp = now().UnixMilli()
	tx.Nonce = uuid.NewString()

	payload, err := tx.CanonicalPayload()
	if err != nil {
		return nil, err
	}
	sig, err := core.SignPayload(signer, payload)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signature = sig
	tx.Hash = core.HashStrings(string(payload), sig.Value)
	return tx, nil
}
