package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "foundrchain %v", args)
	return out.Bytes()
}

func TestCommandFlow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOUNDRCHAIN_DATA_DIR", dir)
	t.Setenv("FOUNDRCHAIN_KEY_SCHEME", "ed25519")
	keyFile := filepath.Join(dir, "founder.pem")

	var handle struct {
		WalletID   string `json:"walletId"`
		PrivateKey string `json:"privateKey"`
	}
	require.NoError(t, json.Unmarshal(run(t, "wallet", "create", "founder-1", "--key-out", keyFile, "-o", "json"), &handle))
	require.NotEmpty(t, handle.WalletID)
	assert.Empty(t, handle.PrivateKey)

	var receipt struct {
		BalanceAfter string `json:"balanceAfter"`
	}
	require.NoError(t, json.Unmarshal(run(t, "register", handle.WalletID, "founder-1", "1000", "--key", keyFile, "-o", "json"), &receipt))
	assert.Equal(t, "1000", receipt.BalanceAfter)
	require.NoError(t, json.Unmarshal(run(t, "withdraw", handle.WalletID, "600", "--key", keyFile, "-o", "json"), &receipt))
	assert.Equal(t, "400", receipt.BalanceAfter)

	run(t, "assemble")

	var res struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(run(t, "verify", "-o", "json"), &res))
	assert.True(t, res.Valid)

	var proof struct {
		CurrentValuation   string `json:"currentValuation"`
		RegisteredFounders int    `json:"registeredFounders"`
	}
	require.NoError(t, json.Unmarshal(run(t, "prove", "-o", "json"), &proof))
	assert.Equal(t, "10000", proof.CurrentValuation)
	assert.Equal(t, 1, proof.RegisteredFounders)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(run(t, "blocks", "-o", "json"), &blocks))
	assert.Len(t, blocks, 2)

	run(t, "peers", "add", "node-2", "10.0.0.2:7000")
	var peers []map[string]any
	require.NoError(t, json.Unmarshal(run(t, "peers", "list", "-o", "json"), &peers))
	assert.Len(t, peers, 1)
}
