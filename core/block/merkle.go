package block

import (
	"crypto/sha256"
	"encoding/hex"
)

// MerkleRoot computes the Merkle root of a list of hashes (as hex strings).
// An odd node at any level is paired with itself. A single hash is its own
// root; an empty list returns an empty string.
func MerkleRoot(hashes []string) string {
	n := len(hashes)
	if n == 0 {
		return ""
	}
	for n > 1 {
		nextLevel := make([]string, 0, (n+1)/2)
		for i := 0; i < n; i += 2 {
			right := hashes[i]
			if i+1 < n {
				right = hashes[i+1]
			}
			h := sha256.New()
			h.Write([]byte(hashes[i]))
			h.Write([]byte(right))
			nextLevel = append(nextLevel, hex.EncodeToString(h.Sum(nil)))
		}
		hashes = nextLevel
		n = len(hashes)
	}
	return hashes[0]
}
