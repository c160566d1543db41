package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundrchain/core/audit"
	"foundrchain/core/block"
	"foundrchain/core/config"
	"foundrchain/core/mempool"
	"foundrchain/core/notify"
	"foundrchain/core/storage"
	"foundrchain/core/transaction"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Backend = backend
	cfg.KeyScheme = config.SchemeEd25519
	cfg.MaxNonceAttempts = 5_000_000
	cfg.MaxMiningRounds = 4
	return cfg
}

func openLedger(t *testing.T, cfg config.Config) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), cfg, WithAuditLogger(&audit.MemoryAuditLogger{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func units(n int64) transaction.Allocation {
	return transaction.Allocation{Total: decimal.NewFromInt(n)}
}

func TestGenesisOnFreshLedger(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))

	blocks, err := l.GetLatestBlocks(10)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, uint64(0), blocks[0].Index)
	assert.Equal(t, "0", blocks[0].PreviousHash)
	assert.Equal(t, 0, blocks[0].Tier)
	assert.Equal(t, 0, l.CurrentTier().Level)

	res, err := l.VerifyChain()
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestBalanceArithmetic(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("founder-1")
	require.NoError(t, err)
	assert.Contains(t, h.PrivateKeyPEM, "PRIVATE KEY")

	r, err := l.RegisterAllocation(h.WalletID, "founder-1", units(1000))
	require.NoError(t, err)
	assert.True(t, r.BalanceAfter.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, transaction.KindRegistration, r.Kind)
	assert.NotEmpty(t, r.ReceiptID)

	w, err := l.GetWallet(h.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1000)))

	r, err = l.Withdraw(h.WalletID, decimal.NewFromInt(600), "bank")
	require.NoError(t, err)
	assert.True(t, r.BalanceAfter.Equal(decimal.NewFromInt(400)))
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(600)))

	_, err = l.Withdraw(h.WalletID, decimal.NewFromInt(500), "bank")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	w, err = l.GetWallet(h.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 2, len(l.PendingTransactions()))

	_, err = l.GetWallet("wal_missing")
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = l.RegisterAllocation(h.WalletID, "someone-else", units(1))
	require.ErrorIs(t, err, ErrParticipantMismatch)
	_, err = l.Withdraw(h.WalletID, decimal.Zero, "bank")
	require.ErrorIs(t, err, ErrInvalidAllocation)
}

func TestAssembleBlockDrainsMempool(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	ctx := context.Background()

	empty, err := l.AssembleBlock(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	r, err := l.RegisterAllocation(h.WalletID, "f", units(100))
	require.NoError(t, err)

	blk, err := l.AssembleBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, blk)
	assert.Equal(t, uint64(1), blk.Index)
	require.Len(t, blk.Transactions, 1)
	assert.Equal(t, r.TxHash, blk.MerkleRoot)
	assert.Empty(t, l.PendingTransactions())

	again, err := l.AssembleBlock(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)

	got, ok, err := l.GetBlock(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blk.Hash, got.Hash)
	_, ok, err = l.GetBlock(9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMiningFailureRequeues(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(h.WalletID, "f", units(100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.AssembleBlock(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, l.PendingTransactions(), 1)

	l.miner = block.NewMiner(1, 1)
	l.miner.Now = func() time.Time { return time.UnixMilli(1) }
	_, err = l.AssembleBlock(context.Background())
	if err != nil {
		require.ErrorIs(t, err, ErrMiningTimeout)
		assert.Len(t, l.PendingTransactions(), 1)
	}
}

func TestEventsAndTierAdvance(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	events, cancel := l.Subscribe(64)
	defer cancel()

	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		_, err := l.RegisterAllocation(h.WalletID, "f", units(1))
		require.NoError(t, err)
		_, err = l.AssembleBlock(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, l.CurrentTier().Level)
	assert.Equal(t, "advanced", l.CurrentTier().ConsensusLabel)

	var created, changed int
	var tierEvent notify.Event
	for len(events) > 0 {
		ev := <-events
		switch ev.Type {
		case notify.BlockCreated:
			created++
		case notify.TierChanged:
			changed++
			tierEvent = ev
		}
	}
	assert.Equal(t, 9, created)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 0, tierEvent.PreviousTier)
	assert.Equal(t, 1, tierEvent.Tier)

	// The next block is mined at the advanced difficulty.
	_, err = l.RegisterAllocation(h.WalletID, "f", units(1))
	require.NoError(t, err)
	blk, err := l.AssembleBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, blk.Tier)
	assert.Equal(t, "000", blk.Hash[:3])

	res, err := l.VerifyChain()
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Reason)
}

func TestValuationProof(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	a, err := l.CreateWallet("alice")
	require.NoError(t, err)
	b, err := l.CreateWallet("bob")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(a.WalletID, "alice", units(80_000))
	require.NoError(t, err)
	_, err = l.RegisterAllocation(b.WalletID, "bob", units(40_000))
	require.NoError(t, err)
	_, err = l.AssembleBlock(context.Background())
	require.NoError(t, err)

	first, err := l.ProveValuation()
	require.NoError(t, err)
	assert.True(t, first.CurrentValuation.Equal(decimal.NewFromInt(1_200_000)))
	assert.Equal(t, 2, first.RegisteredFounders)
	assert.NotEmpty(t, first.Signature)

	second, err := l.ProveValuation()
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestReopenRestoresState(t *testing.T) {
	for _, backend := range []string{config.BackendLevelDB, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			l, err := Open(context.Background(), cfg, WithAuditLogger(&audit.MemoryAuditLogger{}))
			require.NoError(t, err)

			h, err := l.CreateWallet("f")
			require.NoError(t, err)
			_, err = l.RegisterAllocation(h.WalletID, "f", units(1000))
			require.NoError(t, err)
			_, err = l.AssembleBlock(context.Background())
			require.NoError(t, err)
			_, err = l.Withdraw(h.WalletID, decimal.NewFromInt(250), "bank")
			require.NoError(t, err)
			require.NoError(t, l.AddPeer("node-2", "10.0.0.2:7000"))
			genesisHash := l.chain.Blocks()[0].Hash
			require.NoError(t, l.Close())

			_, err = l.GetWallet(h.WalletID)
			require.ErrorIs(t, err, ErrClosed)

			re := openLedger(t, cfg)
			assert.Equal(t, uint64(2), re.ChainLength())
			assert.Equal(t, genesisHash, re.chain.Blocks()[0].Hash)
			assert.Equal(t, 1, re.MempoolSize())
			assert.Equal(t, 1, re.PeerCount())
			w, err := re.GetWallet(h.WalletID)
			require.NoError(t, err)
			assert.True(t, w.Balance.Equal(decimal.NewFromInt(750)))

			// Memory-only keyring: the caller must hand back its key after a restart.
			_, err = re.Withdraw(h.WalletID, decimal.NewFromInt(1), "bank")
			require.ErrorIs(t, err, ErrSigningKeyUnavailable)
			require.NoError(t, re.ImportSigningKey(h.WalletID, h.PrivateKeyPEM))
			_, err = re.Withdraw(h.WalletID, decimal.NewFromInt(1), "bank")
			require.NoError(t, err)

			res, err := re.VerifyChain()
			require.NoError(t, err)
			assert.True(t, res.Valid)
		})
	}
}

func TestSealedKeyringSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.BackendLevelDB)
	cfg.KeyringDEK = "MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTIzNDU2Nzg5MDE="
	l, err := Open(context.Background(), cfg, WithAuditLogger(&audit.MemoryAuditLogger{}))
	require.NoError(t, err)
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	re := openLedger(t, cfg)
	_, err = re.RegisterAllocation(h.WalletID, "f", units(5))
	require.NoError(t, err)
}

func TestImportSigningKeyRejectsForeignKey(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	a, err := l.CreateWallet("a")
	require.NoError(t, err)
	b, err := l.CreateWallet("b")
	require.NoError(t, err)
	require.ErrorIs(t, l.ImportSigningKey(a.WalletID, b.PrivateKeyPEM), ErrInvalidSignature)
	require.Error(t, l.ImportSigningKey(a.WalletID, "not a pem"))
}

func TestConcurrentWithdrawalsSerialize(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(h.WalletID, "f", units(500))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Withdraw(h.WalletID, decimal.NewFromInt(100), "bank"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	w, err := l.GetWallet(h.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Len(t, l.PendingTransactions(), 6)
}

// failingMempoolStore rejects writes to the mempool document.
type failingMempoolStore struct {
	storage.StateBackend
}

func (f failingMempoolStore) Put(key string, value []byte) error {
	if key == storage.KeyMempool {
		return storage.ErrPersistenceFailure
	}
	return f.StateBackend.Put(key, value)
}

func TestEnqueueFailureRestoresBalance(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("f")
	require.NoError(t, err)

	backend := failingMempoolStore{StateBackend: l.backend}
	l.mempool, err = mempool.Load(backend)
	require.NoError(t, err)

	_, err = l.RegisterAllocation(h.WalletID, "f", units(100))
	require.ErrorIs(t, err, ErrPersistenceFailure)
	w, err := l.GetWallet(h.WalletID)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, w.History)
}

func TestRunProducerStopsOnCancel(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(h.WalletID, "f", units(1))
	require.NoError(t, err)

	events, cancelSub := l.Subscribe(4)
	defer cancelSub()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.RunProducer(ctx, 10*time.Millisecond) }()

	select {
	case ev := <-events:
		assert.Equal(t, notify.BlockCreated, ev.Type)
	case <-time.After(10 * time.Second):
		t.Fatal("producer did not create a block")
	}
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}

func TestMetricsSnapshot(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	m := l.Metrics()
	assert.Equal(t, uint64(1), m.ChainLength)
	assert.Equal(t, "simple", m.ConsensusLabel)
	assert.NotEmpty(t, m.LastBlockTime)
}

func TestTamperedPendingTxIsDroppedOnAssembly(t *testing.T) {
	cfg := testConfig(t, config.BackendLevelDB)
	l, err := Open(context.Background(), cfg, WithAuditLogger(&audit.MemoryAuditLogger{}))
	require.NoError(t, err)
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(h.WalletID, "f", units(1000))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	backend, err := storage.Open(cfg.Backend, cfg.DataDir)
	require.NoError(t, err)
	raw, err := backend.Get(storage.KeyMempool)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"totalAllocation":"1000"`)
	edited := strings.Replace(string(raw), `"totalAllocation":"1000"`, `"totalAllocation":"9999"`, 1)
	require.NoError(t, backend.Put(storage.KeyMempool, []byte(edited)))
	require.NoError(t, backend.Close())

	logger := &audit.MemoryAuditLogger{}
	re, err := Open(context.Background(), cfg, WithAuditLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = re.Close() })
	require.NoError(t, re.ImportSigningKey(h.WalletID, h.PrivateKeyPEM))
	r, err := re.Withdraw(h.WalletID, decimal.NewFromInt(5), "bank")
	require.NoError(t, err)
	require.Len(t, re.PendingTransactions(), 2)

	blk, err := re.AssembleBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, blk)
	require.Len(t, blk.Transactions, 1)
	assert.Equal(t, r.TxHash, blk.Transactions[0].Hash)
	assert.Empty(t, re.PendingTransactions())

	var rejected int
	for _, e := range logger.Events() {
		if e.EventType == audit.EventSignatureInvalid {
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)

	res, err := re.VerifyChain()
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Reason)
}

func TestAssembleWithOnlyInvalidTxProducesNoBlock(t *testing.T) {
	l := openLedger(t, testConfig(t, config.BackendMemory))
	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	_, err = l.RegisterAllocation(h.WalletID, "f", units(10))
	require.NoError(t, err)

	pending := l.PendingTransactions()
	require.Len(t, pending, 1)
	pending[0].Registration.TotalAllocation = decimal.NewFromInt(11)

	blk, err := l.AssembleBlock(context.Background())
	require.NoError(t, err)
	assert.Nil(t, blk)
	assert.Empty(t, l.PendingTransactions())
	assert.Equal(t, uint64(1), l.ChainLength())
}

func TestCreateWalletFailureLeavesNoSealedKey(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.KeyringDEK = "MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTIzNDU2Nzg5MDE="
	l := openLedger(t, cfg)

	_, err := l.CreateWallet("   ")
	require.Error(t, err)
	keys, err := l.backend.Keys(storage.PrefixKeyring)
	require.NoError(t, err)
	assert.Empty(t, keys)

	h, err := l.CreateWallet("f")
	require.NoError(t, err)
	keys, err = l.backend.Keys(storage.PrefixKeyring)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.PrefixKeyring + h.WalletID}, keys)
}
