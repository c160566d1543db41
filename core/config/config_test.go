package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.UnitValue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 2048, cfg.RSABits)
	assert.Nil(t, cfg.DEK())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	yml := "dataDir: " + filepath.Join(dir, "data") + "\n" +
		"backend: bolt\n" +
		"keyScheme: ed25519\n" +
		"unitValue: \"25\"\n" +
		"blockInterval: 3s\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("FOUNDRCHAIN_MAX_MINING_ROUNDS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, SchemeEd25519, cfg.KeyScheme)
	assert.True(t, cfg.UnitValue.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 3*time.Second, cfg.BlockInterval)
	assert.Equal(t, 3, cfg.MaxMiningRounds)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendLevelDB, cfg.Backend)
}

func TestValidateRejectsBadShares(t *testing.T) {
	cfg := Default()
	cfg.PersonalShare = decimal.RequireFromString("0.5")
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backend = "sqlite"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.KeyringDEK = "c2hvcnQ="
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsMalformedIntEnv(t *testing.T) {
	for _, key := range []string{"FOUNDRCHAIN_RSA_BITS", "FOUNDRCHAIN_MAX_MINING_ROUNDS", "FOUNDRCHAIN_EVENT_BUFFER"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "twelve")
			_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
