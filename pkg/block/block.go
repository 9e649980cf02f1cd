// Package block defines the Block type, its canonical hash, and the
// Merkle-root wiring over its transaction set.
package block

import (
	"encoding/json"
	"strconv"

	"github.com/floodnet/node/pkg/hasher"
	"github.com/floodnet/node/pkg/tx"
)

// Block is the unit of chain storage. Its identity is its Hash field,
// which is the SHA-256 hex digest of the canonical serialization of every
// other field concatenated with the decimal nonce string (see ComputeHash).
//
// Field order here is load-bearing: encoding/json marshals struct fields
// in declaration order, and that fixed order is what makes canonical
// serialization byte-identical across independently built peers.
type Block struct {
	IsGenesis    bool               `json:"isGenesis"`
	PreviousHash string             `json:"previousHash"`
	Timestamp    string             `json:"timestamp"`
	Nonce        string             `json:"nonce"`
	Creator      string             `json:"creator"`
	MerkleRoot   string             `json:"merkleRoot"`
	Count        int                `json:"count"`
	Transactions []*tx.Transaction  `json:"transactions"`
	Hash         string             `json:"hash"`
}

// unhashed mirrors Block's field order with the Hash field omitted. It
// exists solely to give canonicalization a type whose JSON encoding is
// guaranteed not to contain "hash" — every peer must recompute the same
// hash from the same fields, so this omission is load-bearing.
type unhashed struct {
	IsGenesis    bool              `json:"isGenesis"`
	PreviousHash string            `json:"previousHash"`
	Timestamp    string            `json:"timestamp"`
	Nonce        string            `json:"nonce"`
	Creator      string            `json:"creator"`
	MerkleRoot   string            `json:"merkleRoot"`
	Count        int               `json:"count"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// ComputeHash recomputes the block's hash from every field except Hash,
// concatenated with the given nonce string. This is the single source of
// truth for block identity; both mining and validation call it.
func ComputeHash(b *Block, nonce string) (string, error) {
	u := unhashed{
		IsGenesis:    b.IsGenesis,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Nonce:        nonce,
		Creator:      b.Creator,
		MerkleRoot:   b.MerkleRoot,
		Count:        b.Count,
		Transactions: b.Transactions,
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return hasher.Sha256Hex(append(data, []byte(nonce)...)), nil
}

// ComputeMerkleRoot hashes each transaction into a Merkle leaf and folds
// them into a single root, per pkg/hasher.MerkleRoot.
func ComputeMerkleRoot(txs []*tx.Transaction) (string, error) {
	leaves := make([]string, len(txs))
	for i, t := range txs {
		leaf, err := t.LeafHash()
		if err != nil {
			return "", err
		}
		leaves[i] = leaf
	}
	return hasher.MerkleRoot(leaves), nil
}

// NonceString renders an integer mining attempt as the decimal string
// that ComputeHash concatenates onto the canonical encoding.
func NonceString(n uint64) string {
	return strconv.FormatUint(n, 10)
}
