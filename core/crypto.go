package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PrivKeyFile = "node_ed25519.priv"
	PubKeyFile  = "node_ed25519.pub"
)

// HashHex returns the hex-encoded SHA-256 of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashStrings hashes the concatenation of parts (no separators) and returns hex.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LoadOrCreateNodeKey loads the node's Ed25519 keypair from dir, generating and
// saving a new one if none is present.
func LoadOrCreateNodeKey(dir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privPath := filepath.Join(dir, PrivKeyFile)
	pubPath := filepath.Join(dir, PubKeyFile)
	if _, err := os.Stat(privPath); err == nil {
		return loadNodeKey(privPath, pubPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), 0o644); err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

func loadNodeKey(privPath, pubPath string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privHex, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, err
	}
	pubHex, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, err
	}
	priv, err := hex.DecodeString(string(privHex))
	if err != nil || len(priv) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("node private key at %s is malformed", privPath)
	}
	pub, err := hex.DecodeString(string(pubHex))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("node public key at %s is malformed", pubPath)
	}
	return ed25519.PublicKey(pub), ed25519.PrivateKey(priv), nil
}
