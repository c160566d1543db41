// Package ledger is the explicit store object of a node. Open loads every
// persisted document, seeding the genesis block on first run; Close releases
// the backend. All ledger operations hang off *Ledger.
package ledger

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"foundrchain/core"
	"foundrchain/core/audit"
	"foundrchain/core/block"
	"foundrchain/core/chain"
	"foundrchain/core/config"
	"foundrchain/core/difficulty"
	"foundrchain/core/genesis"
	"foundrchain/core/mempool"
	"foundrchain/core/notify"
	"foundrchain/core/storage"
	"foundrchain/core/transaction"
	"foundrchain/core/wallet"
)

var (
	ErrClosed              = errors.New("ledger is closed")
	ErrParticipantMismatch = errors.New("participant does not own wallet")

	ErrWalletNotFound          = wallet.ErrWalletNotFound
	ErrInsufficientBalance     = wallet.ErrInsufficientBalance
	ErrInvalidAmount           = wallet.ErrInvalidAmount
	ErrSigningKeyUnavailable   = wallet.ErrSigningKeyUnavailable
	ErrInvalidAllocation       = transaction.ErrInvalidAllocation
	ErrInvalidSignature        = transaction.ErrInvalidSignature
	ErrChainIntegrityViolation = chain.ErrChainIntegrityViolation
	ErrPersistenceFailure      = storage.ErrPersistenceFailure
	ErrMiningTimeout           = block.ErrMiningTimeout
)

// Option adjusts Open.
type Option func(*Ledger)

// WithAuditLogger replaces the stdout audit logger.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(ld *Ledger) { ld.audit = l }
}

// Ledger owns the chain, mempool, wallets and peer list of one node.
type Ledger struct {
	cfg     config.Config
	backend storage.StateBackend
	audit   audit.AuditLogger

	wallets *wallet.Manager
	keyring wallet.Keyring
	builder *transaction.Builder
	mempool *mempool.Mempool
	peers   *mempool.PeerSet
	chain   *chain.Store
	tiers   *difficulty.Controller
	miner   *block.Miner
	bus     *notify.Bus

	nodeKey ed25519.PrivateKey

	assembleMu sync.Mutex
	closeMu    sync.RWMutex
	closed     bool
	startedAt  time.Time
}

// Open loads (or initializes) the ledger described by cfg.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", storage.ErrPersistenceFailure, err)
	}

	l := &Ledger{
		cfg:       cfg,
		builder:   transaction.NewBuilder(cfg.PersonalShare, cfg.ReinvestmentShare),
		miner:     block.NewMiner(cfg.MaxNonceAttempts, cfg.MaxMiningRounds),
		bus:       notify.NewBus(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.audit == nil {
		l.audit = audit.NewStdoutAuditLogger()
	}

	backend, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	l.backend = backend
	if err := l.load(ctx); err != nil {
		backend.Close()
		return nil, err
	}
	log.Printf("[LEDGER] Opened %s ledger at %s: %d block(s), %d pending tx(s), tier %d (%s)",
		cfg.Backend, cfg.DataDir, l.chain.Len(), l.mempool.Len(), l.tiers.Current().Level, l.tiers.Current().ConsensusLabel)
	return l, nil
}

func (l *Ledger) load(ctx context.Context) error {
	var err error
	if l.wallets, err = wallet.NewManager(l.backend, l.audit); err != nil {
		return err
	}
	if dek := l.cfg.DEK(); dek != nil {
		if l.keyring, err = wallet.NewSealedKeyring(l.backend, dek); err != nil {
			return err
		}
	} else {
		l.keyring = wallet.NewMemoryKeyring()
	}
	if l.mempool, err = mempool.Load(l.backend); err != nil {
		return err
	}
	if l.peers, err = mempool.LoadPeerSet(l.backend); err != nil {
		return err
	}
	if l.chain, err = chain.Load(l.backend); err != nil {
		return err
	}
	if l.chain.Len() == 0 {
		gcfg, err := genesis.LoadConfig(filepath.Join(l.cfg.DataDir, genesis.ConfigFile))
		if err != nil {
			return err
		}
		g, err := genesis.CreateGenesisBlock(ctx, gcfg, l.miner)
		if err != nil {
			return err
		}
		if err := l.chain.Append(g); err != nil {
			return err
		}
	}
	l.tiers = difficulty.NewController(l.chain.Len())

	if _, l.nodeKey, err = core.LoadOrCreateNodeKey(l.cfg.DataDir); err != nil {
		return fmt.Errorf("node key: %w", err)
	}
	return nil
}

// begin guards an operation against a concurrent Close.
func (l *Ledger) begin() (func(), error) {
	l.closeMu.RLock()
	if l.closed {
		l.closeMu.RUnlock()
		return nil, ErrClosed
	}
	return l.closeMu.RUnlock, nil
}

// Close waits for in-flight operations, closes subscriptions and the backend.
func (l *Ledger) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.bus.Close()
	log.Printf("[LEDGER] Closing ledger at %s", l.cfg.DataDir)
	return l.backend.Close()
}

// Config returns the configuration the ledger was opened with.
func (l *Ledger) Config() config.Config {
	return l.cfg
}

// Subscribe returns a bounded channel of block and tier events.
func (l *Ledger) Subscribe(buffer int) (<-chan notify.Event, func()) {
	if buffer <= 0 {
		buffer = l.cfg.EventBuffer
	}
	return l.bus.Subscribe(buffer)
}
