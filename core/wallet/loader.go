package wallet

import (
	"crypto"
	"errors"
	"fmt"
	"os"

	"foundrchain/core"
)

// EnvSignerKey holds a PEM private key for CLI signing when no key file is given.
const EnvSignerKey = "FOUNDRCHAIN_SIGNER_PRIVKEY"

// KeyLoader produces a signing key from somewhere outside the ledger.
type KeyLoader interface {
	LoadKey() (crypto.Signer, error)
}

// FileKeyLoader reads a PKCS8 PEM private key from disk.
type FileKeyLoader struct {
	Path string
}

func (l *FileKeyLoader) LoadKey() (crypto.Signer, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return core.ParsePrivateKeyPEM(string(raw))
}

// EnvKeyLoader reads a PEM private key from an environment variable.
type EnvKeyLoader struct {
	Var string
}

func (l *EnvKeyLoader) LoadKey() (crypto.Signer, error) {
	name := l.Var
	if name == "" {
		name = EnvSignerKey
	}
	pem := os.Getenv(name)
	if pem == "" {
		return nil, errors.New(name + " not set in environment")
	}
	return core.ParsePrivateKeyPEM(pem)
}

// LoaderFor picks a file loader when path is set and the env loader otherwise.
func LoaderFor(path string) KeyLoader {
	if path != "" {
		return &FileKeyLoader{Path: path}
	}
	return &EnvKeyLoader{}
}
