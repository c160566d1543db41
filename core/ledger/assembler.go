package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"foundrchain/core/block"
	"foundrchain/core/difficulty"
	"foundrchain/core/notify"
	"foundrchain/core/transaction"
)

// AssembleBlock drains the mempool into a newly mined block. It returns
// (nil, nil) when the mempool is empty. If mining or the append fails the
// drained transactions go back to the front of the mempool.
func (l *Ledger) AssembleBlock(ctx context.Context) (*block.Block, error) {
	done, err := l.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	l.assembleMu.Lock()
	defer l.assembleMu.Unlock()

	txs, err := l.mempool.DrainAll()
	if err != nil {
		return nil, err
	}
	txs = l.dropUnverifiable(txs)
	if len(txs) == 0 {
		return nil, nil
	}

	blk, err := l.mine(ctx, txs)
	if err != nil {
		if rerr := l.mempool.Requeue(txs); rerr != nil {
			log.Printf("[LEDGER] ERROR: could not requeue %d drained tx(s): %v", len(txs), rerr)
			return nil, fmt.Errorf("%w (requeue failed: %v)", err, rerr)
		}
		log.Printf("[LEDGER] Block assembly failed, requeued %d tx(s): %v", len(txs), err)
		return nil, err
	}

	previous, advanced := l.tiers.Observe(l.chain.Len())
	l.bus.Publish(notify.Event{
		Type:       notify.BlockCreated,
		BlockIndex: blk.Index,
		BlockHash:  blk.Hash,
		TxCount:    len(blk.Transactions),
		Tier:       blk.Tier,
		Consensus:  difficulty.Tiers[blk.Tier].ConsensusLabel,
	})
	if advanced {
		current := l.tiers.Current()
		log.Printf("[LEDGER] Complexity tier advanced %d -> %d (%s, difficulty %d)",
			previous.Level, current.Level, current.ConsensusLabel, current.HashDifficulty)
		l.bus.Publish(notify.Event{
			Type:         notify.TierChanged,
			BlockIndex:   blk.Index,
			BlockHash:    blk.Hash,
			Tier:         current.Level,
			PreviousTier: previous.Level,
			Consensus:    current.ConsensusLabel,
		})
	}
	log.Printf("[LEDGER] Block %d committed with %d tx(s): %s", blk.Index, len(blk.Transactions), blk.Hash)
	return blk, nil
}

func (l *Ledger) mine(ctx context.Context, txs []*transaction.Transaction) (*block.Block, error) {
	if len(txs) == 0 {
		return nil, block.ErrEmptyBlock
	}
	tip := l.chain.Tip()
	tier := difficulty.TierFor(l.chain.Len())
	blk := &block.Block{
		Index:        tip.Index + 1,
		PreviousHash: tip.Hash,
		Transactions: txs,
		MerkleRoot:   block.MerkleRoot(transaction.Hashes(txs)),
		Tier:         tier.Level,
	}
	if err := l.miner.Mine(ctx, blk, tier.HashDifficulty); err != nil {
		return nil, err
	}
	if err := l.chain.Append(blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// dropUnverifiable discards drained transactions whose signature does not
// check against their wallet key. Dropped entries are never requeued; the
// verifier records an audit event for each.
func (l *Ledger) dropUnverifiable(txs []*transaction.Transaction) []*transaction.Transaction {
	kept := make([]*transaction.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := l.wallets.VerifyTransaction(tx); err != nil {
			log.Printf("[LEDGER] Dropping pending tx %s: %v", tx.Hash, err)
			continue
		}
		kept = append(kept, tx)
	}
	return kept
}

// RunProducer assembles a block every interval until ctx is cancelled or the
// ledger is closed. Assembly errors are logged and retried on the next tick.
func (l *Ledger) RunProducer(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = l.cfg.BlockInterval
	}
	log.Printf("[PRODUCER] Block producer started, interval %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[PRODUCER] Block producer stopped")
			return ctx.Err()
		case <-ticker.C:
			_, err := l.AssembleBlock(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrClosed):
				return err
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				log.Printf("[PRODUCER] block assembly failed: %v", err)
			}
		}
	}
}
