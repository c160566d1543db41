package mempool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundrchain/core"
	"foundrchain/core/storage"
	"foundrchain/core/transaction"
)

func buildTxs(t *testing.T, n int) []*transaction.Transaction {
	t.Helper()
	kp, err := core.GenerateKeyPair(core.AlgEd25519, 0)
	require.NoError(t, err)
	b := transaction.NewBuilder(decimal.RequireFromString("0.4"), decimal.RequireFromString("0.6"))
	out := make([]*transaction.Transaction, n)
	for i := range out {
		tx, err := b.BuildWithdrawal("w1", decimal.NewFromInt(int64(i+1)), "bank", kp.Signer)
		require.NoError(t, err)
		out[i] = tx
	}
	return out
}

func TestEnqueueDrainOrder(t *testing.T) {
	mp, err := Load(storage.NewMemoryStorage())
	require.NoError(t, err)
	txs := buildTxs(t, 3)
	for _, tx := range txs {
		require.NoError(t, mp.Enqueue(tx))
	}
	require.ErrorIs(t, mp.Enqueue(txs[0]), ErrDuplicateTx)
	assert.Equal(t, 3, mp.Len())

	got, ok := mp.GetTx(txs[1].Hash)
	require.True(t, ok)
	assert.Equal(t, txs[1].Hash, got.Hash)

	drained, err := mp.DrainAll()
	require.NoError(t, err)
	assert.Equal(t, transaction.Hashes(txs), transaction.Hashes(drained))
	assert.Equal(t, 0, mp.Len())

	again, err := mp.DrainAll()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRequeueGoesToFront(t *testing.T) {
	mp, err := Load(storage.NewMemoryStorage())
	require.NoError(t, err)
	txs := buildTxs(t, 3)
	require.NoError(t, mp.Enqueue(txs[0]))
	require.NoError(t, mp.Enqueue(txs[1]))
	drained, err := mp.DrainAll()
	require.NoError(t, err)

	require.NoError(t, mp.Enqueue(txs[2]))
	require.NoError(t, mp.Requeue(drained))
	assert.Equal(t, []string{txs[0].Hash, txs[1].Hash, txs[2].Hash}, transaction.Hashes(mp.All()))
}

func TestMempoolSurvivesReload(t *testing.T) {
	store := storage.NewMemoryStorage()
	mp, err := Load(store)
	require.NoError(t, err)
	txs := buildTxs(t, 2)
	for _, tx := range txs {
		require.NoError(t, mp.Enqueue(tx))
	}

	reloaded, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, transaction.Hashes(txs), transaction.Hashes(reloaded.All()))

	_, err = reloaded.DrainAll()
	require.NoError(t, err)
	empty, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Put(storage.KeyMempool, []byte(`[{"kind":"bogus"}]`)))
	_, err := Load(store)
	require.ErrorIs(t, err, storage.ErrPersistenceFailure)
	require.ErrorIs(t, err, transaction.ErrMalformedTransaction)
}

func TestPeerSetPersists(t *testing.T) {
	store := storage.NewMemoryStorage()
	ps, err := LoadPeerSet(store)
	require.NoError(t, err)
	require.NoError(t, ps.AddPeer(Peer{ID: "b", Address: "10.0.0.2:7000"}))
	require.NoError(t, ps.AddPeer(Peer{ID: "a", Address: "10.0.0.1:7000"}))
	require.Error(t, ps.AddPeer(Peer{ID: "c"}))

	reloaded, err := LoadPeerSet(store)
	require.NoError(t, err)
	peers := reloaded.ListPeers()
	require.Len(t, peers, 2)
	assert.Equal(t, "a", peers[0].ID)
	assert.False(t, peers[0].AddedAt.IsZero())

	require.NoError(t, reloaded.RemovePeer("a"))
	_, ok := reloaded.GetPeer("a")
	assert.False(t, ok)
}
