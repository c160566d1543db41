package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ConfigFile is looked up in the data dir at first initialization.
const ConfigFile = "genesis.json"

// Config describes the genesis block.
type Config struct {
	ChainID     string    `json:"chainId"`
	GenesisTime time.Time `json:"genesisTime"`
	Description string    `json:"description"`
}

// DefaultConfig is used when no genesis.json is present.
func DefaultConfig() Config {
	return Config{
		ChainID:     "foundrchain-1",
		GenesisTime: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Description: GenesisDescription,
	}
}

// LoadConfig reads path, falling back to DefaultConfig when it does not exist.
// Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("could not read genesis config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse genesis config: %w", err)
	}
	if cfg.Description == "" {
		return cfg, errors.New("genesis description must not be empty")
	}
	return cfg, nil
}
