package block

import (
	"fmt"
	"strings"
)

// MeetsDifficulty reports whether a hex hash string has at least
// `difficulty` leading '0' characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

// VerifyHash recomputes the block's hash from its fields and nonce and
// compares it against the declared Hash. A mismatch means the block is
// rejected outright — hash identity is the one thing consensus cannot
// be sloppy about.
func VerifyHash(b *Block) error {
	recomputed, err := ComputeHash(b, b.Nonce)
	if err != nil {
		return fmt.Errorf("recompute hash: %w", err)
	}
	if recomputed != b.Hash {
		return fmt.Errorf("hash mismatch: declared %s, recomputed %s", b.Hash, recomputed)
	}
	return nil
}
