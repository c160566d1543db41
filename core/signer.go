package core

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

// Supported signature algorithms.
const (
	AlgRSA     = "RSA"
	AlgEd25519 = "Ed25519"
)

// DefaultRSABits is the modulus size used when none is configured.
const DefaultRSABits = 2048

// KeyPair holds a freshly generated key pair in PEM form.
type KeyPair struct {
	Algorithm     string
	PublicKeyPEM  string
	PrivateKeyPEM string
	Signer        crypto.Signer
}

// Signature contains all signature metadata
type Signature struct {
	Algorithm         string `json:"algorithm"`
	Value             string `json:"value"`
	SignedPayloadHash string `json:"signedPayloadHash"`
}

// GenerateKeyPair creates a key pair for the given algorithm. bits is only used for RSA.
func GenerateKeyPair(algorithm string, bits int) (*KeyPair, error) {
	var signer crypto.Signer
	switch algorithm {
	case AlgRSA:
		if bits <= 0 {
			bits = DefaultRSABits
		}
		k, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, err
		}
		signer = k
	case AlgEd25519:
		_, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		signer = k
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
	}

	privPEM, err := MarshalPrivateKeyPEM(signer)
	if err != nil {
		return nil, err
	}
	pubPEM, err := MarshalPublicKeyPEM(signer.Public())
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Algorithm:     algorithm,
		PublicKeyPEM:  pubPEM,
		PrivateKeyPEM: privPEM,
		Signer:        signer,
	}, nil
}

// MarshalPrivateKeyPEM encodes a private key as PKCS#8 PEM.
func MarshalPrivateKeyPEM(key crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// MarshalPublicKeyPEM encodes a public key as PKIX PEM.
func MarshalPublicKeyPEM(key crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// ParsePrivateKeyPEM decodes a PKCS#8 PEM private key.
func ParsePrivateKeyPEM(s string) (crypto.Signer, error) {
	blk, _ := pem.Decode([]byte(s))
	if blk == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}
	k, err := x509.ParsePKCS8PrivateKey(blk.Bytes)
	if err != nil {
		return nil, err
	}
	switch key := k.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case ed25519.PrivateKey:
		return key, nil
	default:
		return nil, errors.New("unsupported private key type")
	}
}

// ParsePublicKeyPEM decodes a PKIX PEM public key.
func ParsePublicKeyPEM(s string) (crypto.PublicKey, error) {
	blk, _ := pem.Decode([]byte(s))
	if blk == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}
	k, err := x509.ParsePKIXPublicKey(blk.Bytes)
	if err != nil {
		return nil, err
	}
	switch key := k.(type) {
	case *rsa.PublicKey, ed25519.PublicKey:
		return key, nil
	default:
		return nil, errors.New("unsupported public key type")
	}
}

// AlgorithmOf reports the signature algorithm for a key.
func AlgorithmOf(key crypto.PublicKey) (string, error) {
	switch key.(type) {
	case *rsa.PublicKey:
		return AlgRSA, nil
	case ed25519.PublicKey:
		return AlgEd25519, nil
	default:
		return "", errors.New("unsupported key type")
	}
}

// SamePublicKey reports whether the signer's public half matches the PEM public key.
func SamePublicKey(signer crypto.Signer, publicKeyPEM string) bool {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false
	}
	type equaler interface{ Equal(crypto.PublicKey) bool }
	eq, ok := signer.Public().(equaler)
	return ok && eq.Equal(pub)
}

// SignPayload signs the SHA-256 digest of payload.
func SignPayload(signer crypto.Signer, payload []byte) (Signature, error) {
	hash := sha256.Sum256(payload)
	alg, err := AlgorithmOf(signer.Public())
	if err != nil {
		return Signature{}, err
	}

	var sig []byte
	switch alg {
	case AlgEd25519:
		sig = ed25519.Sign(signer.(ed25519.PrivateKey), hash[:])
	case AlgRSA:
		sig, err = rsa.SignPKCS1v15(rand.Reader, signer.(*rsa.PrivateKey), crypto.SHA256, hash[:])
		if err != nil {
			return Signature{}, err
		}
	}

	return Signature{
		Algorithm:         alg,
		Value:             base64.StdEncoding.EncodeToString(sig),
		SignedPayloadHash: hex.EncodeToString(hash[:]),
	}, nil
}

// VerifySignature verifies a signature for a payload and PEM public key
func VerifySignature(sig Signature, publicKeyPEM string, payload []byte) bool {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(payload)
	if sig.SignedPayloadHash != "" && sig.SignedPayloadHash != hex.EncodeToString(hash[:]) {
		return false
	}
	switch key := pub.(type) {
	case ed25519.PublicKey:
		return sig.Algorithm == AlgEd25519 && ed25519.Verify(key, hash[:], raw)
	case *rsa.PublicKey:
		return sig.Algorithm == AlgRSA && rsa.VerifyPKCS1v15(key, crypto.SHA256, hash[:], raw) == nil
	default:
		return false
	}
}
