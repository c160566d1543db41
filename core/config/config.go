package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when present.
const DefaultConfigFile = "foundrchain.yaml"

// Storage backends.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Key schemes accepted by KeyScheme.
const (
	SchemeRSA     = "rsa"
	SchemeEd25519 = "ed25519"
)

// Config holds every tunable of a ledger node.
type Config struct {
	DataDir string `yaml:"dataDir"`
	Backend string `yaml:"backend"`

	KeyScheme string `yaml:"keyScheme"`
	RSABits   int    `yaml:"rsaBits"`
	// KeyringDEK is a base64 AES-256 key. Empty keeps signing keys in memory only.
	KeyringDEK string `yaml:"keyringDEK"`

	UnitValue         decimal.Decimal `yaml:"unitValue"`
	PersonalShare     decimal.Decimal `yaml:"personalShare"`
	ReinvestmentShare decimal.Decimal `yaml:"reinvestmentShare"`

	BlockInterval    time.Duration `yaml:"blockInterval"`
	MaxNonceAttempts uint64        `yaml:"maxNonceAttempts"`
	MaxMiningRounds  int           `yaml:"maxMiningRounds"`

	EventBuffer int `yaml:"eventBuffer"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		DataDir:           "./foundrchain_data",
		Backend:           BackendLevelDB,
		KeyScheme:         SchemeRSA,
		RSABits:           2048,
		UnitValue:         decimal.NewFromInt(10),
		PersonalShare:     decimal.RequireFromString("0.4"),
		ReinvestmentShare: decimal.RequireFromString("0.6"),
		BlockInterval:     10 * time.Second,
		MaxNonceAttempts:  2_000_000,
		MaxMiningRounds:   8,
		EventBuffer:       64,
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped when
// absent), then a .env file, then FOUNDRCHAIN_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("could not read config %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = getEnv("FOUNDRCHAIN_DATA_DIR", cfg.DataDir)
	cfg.Backend = getEnv("FOUNDRCHAIN_BACKEND", cfg.Backend)
	cfg.KeyScheme = getEnv("FOUNDRCHAIN_KEY_SCHEME", cfg.KeyScheme)
	cfg.KeyringDEK = getEnv("FOUNDRCHAIN_KEYRING_DEK", cfg.KeyringDEK)
	for key, dst := range map[string]*int{
		"FOUNDRCHAIN_RSA_BITS":          &cfg.RSABits,
		"FOUNDRCHAIN_MAX_MINING_ROUNDS": &cfg.MaxMiningRounds,
		"FOUNDRCHAIN_EVENT_BUFFER":      &cfg.EventBuffer,
	} {
		n, err := getEnvInt(key, *dst)
		if err != nil {
			return err
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("FOUNDRCHAIN_MAX_NONCE_ATTEMPTS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FOUNDRCHAIN_MAX_NONCE_ATTEMPTS: %w", err)
		}
		cfg.MaxNonceAttempts = n
	}
	if v, ok := os.LookupEnv("FOUNDRCHAIN_BLOCK_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FOUNDRCHAIN_BLOCK_INTERVAL: %w", err)
		}
		cfg.BlockInterval = d
	}
	for key, dst := range map[string]*decimal.Decimal{
		"FOUNDRCHAIN_UNIT_VALUE":         &cfg.UnitValue,
		"FOUNDRCHAIN_PERSONAL_SHARE":     &cfg.PersonalShare,
		"FOUNDRCHAIN_REINVESTMENT_SHARE": &cfg.ReinvestmentShare,
	} {
		if v, ok := os.LookupEnv(key); ok {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate rejects configurations the ledger cannot run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("dataDir must be set")
	}
	switch c.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	switch c.KeyScheme {
	case SchemeRSA, SchemeEd25519:
	default:
		return fmt.Errorf("unknown key scheme %q", c.KeyScheme)
	}
	if c.KeyScheme == SchemeRSA && c.RSABits < 2048 {
		return fmt.Errorf("rsaBits must be at least 2048, got %d", c.RSABits)
	}
	if !c.UnitValue.IsPositive() {
		return errors.New("unitValue must be positive")
	}
	if c.PersonalShare.IsNegative() || c.ReinvestmentShare.IsNegative() ||
		!c.PersonalShare.Add(c.ReinvestmentShare).Equal(decimal.NewFromInt(1)) {
		return errors.New("personalShare and reinvestmentShare must be non-negative and sum to 1")
	}
	if c.MaxNonceAttempts == 0 || c.MaxMiningRounds <= 0 {
		return errors.New("mining bounds must be positive")
	}
	if c.KeyringDEK != "" {
		dek, err := base64.StdEncoding.DecodeString(c.KeyringDEK)
		if err != nil {
			return fmt.Errorf("keyringDEK is not base64: %w", err)
		}
		if len(dek) != 32 {
			return errors.New("keyringDEK must be 32 bytes (base64-encoded)")
		}
	}
	return nil
}

// DEK returns the decoded keyring key, or nil when unset.
func (c Config) DEK() []byte {
	if c.KeyringDEK == "" {
		return nil
	}
	dek, _ := base64.StdEncoding.DecodeString(c.KeyringDEK)
	return dek
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}
