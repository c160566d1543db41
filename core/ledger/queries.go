package ledger

import (
	"fmt"
	"time"

	"foundrchain/core/block"
	"foundrchain/core/chain"
	"foundrchain/core/difficulty"
	"foundrchain/core/mempool"
	"foundrchain/core/metrics"
	"foundrchain/core/transaction"
)

// GetLatestBlocks returns up to n blocks ending at the tip, oldest first.
func (l *Ledger) GetLatestBlocks(n int) ([]*block.Block, error) {
	done, err := l.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	return l.chain.Latest(n), nil
}

// GetBlock returns the block at index, or false when there is none.
func (l *Ledger) GetBlock(index uint64) (*block.Block, bool, error) {
	done, err := l.begin()
	if err != nil {
		return nil, false, err
	}
	defer done()
	b, ok := l.chain.Get(index)
	return b, ok, nil
}

// PendingTransactions returns the mempool in queue order.
func (l *Ledger) PendingTransactions() []*transaction.Transaction {
	return l.mempool.All()
}

// VerifyChain re-derives every hash and link, checking each transaction
// signature against its wallet's public key.
func (l *Ledger) VerifyChain() (chain.IntegrityResult, error) {
	done, err := l.begin()
	if err != nil {
		return chain.IntegrityResult{}, err
	}
	defer done()
	v := chain.Verifier{Keys: l.wallets.PublicKey}
	return v.Verify(l.chain.Blocks()), nil
}

// ProveValuation aggregates every committed registration into a signed proof.
func (l *Ledger) ProveValuation() (chain.ValuationProof, error) {
	done, err := l.begin()
	if err != nil {
		return chain.ValuationProof{}, err
	}
	defer done()
	return chain.ProveValuation(l.chain.Blocks(), l.cfg.UnitValue, l.tiers.Current(), l.nodeKey)
}

// CurrentTier is the active complexity tier.
func (l *Ledger) CurrentTier() difficulty.Tier {
	return l.tiers.Current()
}

// AddPeer records a peer in the network document.
func (l *Ledger) AddPeer(id, address string) error {
	done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()
	if err := l.peers.AddPeer(mempool.Peer{ID: id, Address: address}); err != nil {
		return fmt.Errorf("add peer %s: %w", id, err)
	}
	return nil
}

// RemovePeer drops a peer from the network document.
func (l *Ledger) RemovePeer(id string) error {
	done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()
	return l.peers.RemovePeer(id)
}

// Peers lists recorded peers.
func (l *Ledger) Peers() []mempool.Peer {
	return l.peers.ListPeers()
}

// Metrics snapshots host and ledger health.
func (l *Ledger) Metrics() metrics.NodeMetrics {
	return metrics.Collect(l, l.cfg.DataDir)
}

// metrics.Source

func (l *Ledger) ChainLength() uint64    { return l.chain.Len() }
func (l *Ledger) MempoolSize() int       { return l.mempool.Len() }
func (l *Ledger) PeerCount() int         { return len(l.peers.ListPeers()) }
func (l *Ledger) TierLevel() int         { return l.tiers.Current().Level }
func (l *Ledger) ConsensusLabel() string { return l.tiers.Current().ConsensusLabel }
func (l *Ledger) StartedAt() time.Time   { return l.startedAt }

func (l *Ledger) LastBlockTime() time.Time {
	tip := l.chain.Tip()
	if tip == nil {
		return time.Time{}
	}
	return time.UnixMilli(tip.Timestamp)
}
