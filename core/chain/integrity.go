package chain

import (
	"errors"
	"fmt"

	"foundrchain/core/block"
	"foundrchain/core/difficulty"
	"foundrchain/core/transaction"
)

var ErrChainIntegrityViolation = errors.New("chain integrity violation")

// IntegrityResult is the outcome of walking the chain.
type IntegrityResult struct {
	Valid   bool    `json:"valid"`
	Reason  string  `json:"reason,omitempty"`
	AtIndex *uint64 `json:"atIndex,omitempty"`
}

// Err returns nil for a valid chain and ErrChainIntegrityViolation otherwise.
func (r IntegrityResult) Err() error {
	if r.Valid {
		return nil
	}
	if r.AtIndex == nil {
		return fmt.Errorf("%w: %s", ErrChainIntegrityViolation, r.Reason)
	}
	return fmt.Errorf("%w at block %d: %s", ErrChainIntegrityViolation, *r.AtIndex, r.Reason)
}

func invalid(index uint64, format string, args ...any) IntegrityResult {
	return IntegrityResult{Valid: false, Reason: fmt.Sprintf(format, args...), AtIndex: &index}
}

// PublicKeyLookup resolves a wallet id to its PEM public key.
type PublicKeyLookup func(walletID string) (string, error)

// Verifier re-derives every block hash and link. Keys is optional; when set,
// every transaction signature is checked against its wallet's public key.
type Verifier struct {
	Keys PublicKeyLookup
}

// Verify walks blocks in order and stops at the first failure.
func (v Verifier) Verify(blocks []*block.Block) IntegrityResult {
	if len(blocks) <= 1 {
		return IntegrityResult{Valid: true}
	}
	seen := make(map[string]uint64)
	for i, b := range blocks {
		idx := uint64(i)
		if b.Index != idx {
			return invalid(idx, "index %d out of sequence", b.Index)
		}
		if i == 0 {
			if b.PreviousHash != block.GenesisPreviousHash {
				return invalid(idx, "genesis previous hash is %q", b.PreviousHash)
			}
		} else if b.PreviousHash != blocks[i-1].Hash {
			return invalid(idx, "previous hash %s does not match block %d hash %s", b.PreviousHash, i-1, blocks[i-1].Hash)
		}

		hash, err := b.ComputeHash()
		if err != nil {
			return invalid(idx, "cannot recompute hash: %v", err)
		}
		if hash != b.Hash {
			return invalid(idx, "stored hash %s does not match recomputed %s", b.Hash, hash)
		}

		tier, ok := difficulty.ByLevel(b.Tier)
		if !ok {
			return invalid(idx, "unknown complexity tier %d", b.Tier)
		}
		if expected := difficulty.TierFor(idx); tier.Level != expected.Level {
			return invalid(idx, "tier %d recorded, chain length %d requires tier %d", tier.Level, idx, expected.Level)
		}
		if !difficulty.Meets(b.Hash, tier.HashDifficulty) {
			return invalid(idx, "hash %s does not meet difficulty %d", b.Hash, tier.HashDifficulty)
		}

		if i > 0 && len(b.Transactions) == 0 {
			return invalid(idx, "block has no transactions")
		}
		if root := block.MerkleRoot(transaction.Hashes(b.Transactions)); root != b.MerkleRoot {
			return invalid(idx, "merkle root %s does not match recomputed %s", b.MerkleRoot, root)
		}
		for _, tx := range b.Transactions {
			if prev, dup := seen[tx.Hash]; dup {
				return invalid(idx, "transaction %s already committed in block %d", tx.Hash, prev)
			}
			seen[tx.Hash] = idx
			if r := v.verifyTx(idx, tx); !r.Valid {
				return r
			}
		}
	}
	return IntegrityResult{Valid: true}
}

func (v Verifier) verifyTx(idx uint64, tx *transaction.Transaction) IntegrityResult {
	h, err := tx.ComputeHash()
	if err != nil {
		return invalid(idx, "transaction %s: %v", tx.Hash, err)
	}
	if h != tx.Hash {
		return invalid(idx, "transaction hash %s does not match recomputed %s", tx.Hash, h)
	}
	if v.Keys == nil {
		return IntegrityResult{Valid: true}
	}
	pub, err := v.Keys(tx.WalletID())
	if err != nil {
		return invalid(idx, "transaction %s: %v", tx.Hash, err)
	}
	if err := transaction.Verify(tx, pub); err != nil {
		return invalid(idx, "transaction %s: %v", tx.Hash, err)
	}
	return IntegrityResult{Valid: true}
}
