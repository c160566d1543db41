package ids

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is a 32-byte sha256 digest.
type ID [32]byte

// Concat hashes the concatenation of parts without separators.
func Concat(parts ...[]byte) ID {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// String converts an ID back to a hex string
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}
