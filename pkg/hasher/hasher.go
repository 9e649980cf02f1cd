// Package hasher implements the single hashing primitive floodnode relies
// on for consensus: SHA-256 over canonical JSON, and the Merkle-root
// construction used to bind a block's transaction set to its header.
//
// The hash function is pinned to SHA-256 — not a place to swap in a
// faster or trendier hash, since every peer must recompute byte-identical
// hashes from byte-identical canonical encodings.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MerkleRoot computes the Merkle root over a set of leaf hashes (already
// hex-encoded SHA-256 digests of their respective items).
//
// An empty set yields the empty string. A single leaf is its own root.
// Otherwise: pair adjacent leaves (duplicating the last one if the level
// has an odd count), hash each pair's concatenation, and recurse on the
// resulting level until exactly one hash remains.
func MerkleRoot(leaves []string) string {
	if len(leaves) == 0 {
		return ""
	}

	level := make([]string, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = Sha256Hex([]byte(level[i] + level[i+1]))
		}
		level = next
	}

	return level[0]
}
