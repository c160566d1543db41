package genesis

import (
	"context"
	"fmt"
	"log"
	"time"

	"foundrchain/core/block"
	"foundrchain/core/difficulty"
)

// GenesisDescription is the fixed payload of block 0.
const GenesisDescription = "Genesis Block - Founder Compensation Ledger"

// CreateGenesisBlock mines block 0 at the lowest tier. The miner clock is
// pinned to cfg.GenesisTime, so the same config always yields the same block.
func CreateGenesisBlock(ctx context.Context, cfg Config, miner *block.Miner) (*block.Block, error) {
	tier := difficulty.Tiers[0]
	blk := &block.Block{
		Index:        0,
		PreviousHash: block.GenesisPreviousHash,
		Transactions: nil,
		MerkleRoot:   "",
		Tier:         tier.Level,
		Memo:         fmt.Sprintf("%s [%s]", cfg.Description, cfg.ChainID),
	}
	pinned := block.NewMiner(miner.MaxNonceAttempts, miner.MaxRounds)
	genesisTime := cfg.GenesisTime
	pinned.Now = func() time.Time { return genesisTime }
	if err := pinned.Mine(ctx, blk, tier.HashDifficulty); err != nil {
		return nil, fmt.Errorf("mine genesis: %w", err)
	}
	log.Printf("[GENESIS] Created genesis block %s for chain %s", blk.Hash, cfg.ChainID)
	return blk, nil
}
