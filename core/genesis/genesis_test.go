package genesis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundrchain/core/block"
	"foundrchain/core/difficulty"
)

func TestGenesisIsDeterministic(t *testing.T) {
	miner := block.NewMiner(1_000_000, 4)
	a, err := CreateGenesisBlock(context.Background(), DefaultConfig(), miner)
	require.NoError(t, err)
	b, err := CreateGenesisBlock(context.Background(), DefaultConfig(), miner)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), a.Index)
	assert.Equal(t, "0", a.PreviousHash)
	assert.Equal(t, 0, a.Tier)
	assert.Empty(t, a.Transactions)
	assert.Contains(t, a.Memo, GenesisDescription)
	assert.True(t, difficulty.Meets(a.Hash, difficulty.Tiers[0].HashDifficulty))
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, DefaultConfig().GenesisTime.UnixMilli(), a.Timestamp)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"chainId":"test-chain"}`), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-chain", cfg.ChainID)
	assert.Equal(t, GenesisDescription, cfg.Description)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
