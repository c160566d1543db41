package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRSASignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair(AlgRSA, 2048)
	require.NoError(t, err)

	payload := []byte("test payload rsa")
	sig, err := SignPayload(kp.Signer, payload)
	require.NoError(t, err)
	require.Equal(t, AlgRSA, sig.Algorithm)

	require.True(t, VerifySignature(sig, kp.PublicKeyPEM, payload), "RSA signature should verify")
}

func TestEd25519SignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair(AlgEd25519, 0)
	require.NoError(t, err)

	payload := []byte("test payload ed25519")
	sig, err := SignPayload(kp.Signer, payload)
	require.NoError(t, err)

	require.True(t, VerifySignature(sig, kp.PublicKeyPEM, payload), "Ed25519 signature should verify")
}

func TestSignatureTampering(t *testing.T) {
	kp, err := GenerateKeyPair(AlgEd25519, 0)
	require.NoError(t, err)

	sig, err := SignPayload(kp.Signer, []byte("original"))
	require.NoError(t, err)

	require.False(t, VerifySignature(sig, kp.PublicKeyPEM, []byte("tampered payload")))

	other, err := GenerateKeyPair(AlgEd25519, 0)
	require.NoError(t, err)
	require.False(t, VerifySignature(sig, other.PublicKeyPEM, []byte("original")), "wrong key must not verify")
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair(AlgEd25519, 0)
	require.NoError(t, err)

	signer, err := ParsePrivateKeyPEM(kp.PrivateKeyPEM)
	require.NoError(t, err)
	require.True(t, SamePublicKey(signer, kp.PublicKeyPEM))

	other, err := GenerateKeyPair(AlgEd25519, 0)
	require.NoError(t, err)
	require.False(t, SamePublicKey(signer, other.PublicKeyPEM))
}

func TestNodeKeyPersists(t *testing.T) {
	dir := t.TempDir()
	pub1, _, err := LoadOrCreateNodeKey(dir)
	require.NoError(t, err)
	pub2, _, err := LoadOrCreateNodeKey(dir)
	require.NoError(t, err)
	require.Equal(t, pub1, pub2)
}

func TestHashStrings(t *testing.T) {
	require.Equal(t, HashHex([]byte("ab")), HashStrings("a", "b"))
	require.Len(t, HashHex(nil), 64)
}
