package consensus

import (
	"time"

	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
)

// CreateGenesis builds and hashes a genesis block for the given creator
// node. Genesis blocks carry no transactions and bypass the difficulty
// check entirely: accepted unconditionally when no genesis exists yet.
func CreateGenesis(creator string) (*block.Block, error) {
	merkle, err := block.ComputeMerkleRoot(nil)
	if err != nil {
		return nil, err
	}

	b := &block.Block{
		IsGenesis:    true,
		PreviousHash: "",
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Nonce:        "0",
		Creator:      creator,
		MerkleRoot:   merkle,
		Count:        0,
		Transactions: []*tx.Transaction{},
	}

	hash, err := block.ComputeHash(b, b.Nonce)
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	return b, nil
}
