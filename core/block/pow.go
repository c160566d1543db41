package block

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"foundrchain/core/difficulty"
)

var (
	ErrMiningTimeout = errors.New("mining exceeded its attempt budget")
	ErrEmptyBlock    = errors.New("refusing to mine a block without transactions")
)

// ctxCheckInterval is how many nonces are tried between context checks.
const ctxCheckInterval = 4096

// Miner runs a bounded proof-of-work search. Each round tries up to
// MaxNonceAttempts nonces at one timestamp; an exhausted round moves to a
// fresh timestamp, up to MaxRounds rounds.
type Miner struct {
	MaxNonceAttempts uint64
	MaxRounds        int
	Now              func() time.Time

	hashCount atomic.Uint64
}

// NewMiner creates a miner with the given bounds.
func NewMiner(maxNonceAttempts uint64, maxRounds int) *Miner {
	return &Miner{MaxNonceAttempts: maxNonceAttempts, MaxRounds: maxRounds, Now: time.Now}
}

// HashCount is the total number of hashes computed by this miner.
func (m *Miner) HashCount() uint64 {
	return m.hashCount.Load()
}

// Mine fills in Timestamp, Nonce and Hash of b so the hash meets difficulty.
// The body (index, transactions, merkle root, tier, memo) must already be set.
func (m *Miner) Mine(ctx context.Context, b *Block, difficultyZeros int) error {
	data, err := b.Data()
	if err != nil {
		return err
	}
	now := m.Now
	if now == nil {
		now = time.Now
	}
	start := time.Now()

	var lastTS int64
	for round := 0; round < m.MaxRounds; round++ {
		ts := now().UnixMilli()
		if ts <= lastTS {
			ts = lastTS + 1
		}
		lastTS = ts

		for nonce := uint64(0); nonce < m.MaxNonceAttempts; nonce++ {
			if nonce%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			hash := hashWith(b.PreviousHash, ts, data, nonce)
			m.hashCount.Add(1)
			if difficulty.Meets(hash, difficultyZeros) {
				b.Timestamp = ts
				b.Nonce = nonce
				b.Hash = hash
				log.Printf("[MINER] Block %d mined at difficulty %d (nonce %d, round %d, %s)",
					b.Index, difficultyZeros, nonce, round, time.Since(start).Round(time.Millisecond))
				return nil
			}
		}
		log.Printf("[MINER] Block %d: %d attempts exhausted in round %d, retrying with fresh timestamp",
			b.Index, m.MaxNonceAttempts, round)
	}
	return fmt.Errorf("%w: block %d at difficulty %d after %d round(s) of %d nonces",
		ErrMiningTimeout, b.Index, difficultyZeros, m.MaxRounds, m.MaxNonceAttempts)
}
