package block

import (
	"testing"

	"github.com/floodnet/node/pkg/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBlock() *Block {
	return &Block{
		IsGenesis:    false,
		PreviousHash: "abc123",
		Timestamp:    "2026-01-01T00:00:00Z",
		Creator:      "node-1",
		MerkleRoot:   "deadbeef",
		Count:        0,
		Transactions: nil,
	}
}

func TestComputeHash_Deterministic(t *testing.T) {
	b := sampleBlock()
	h1, err := ComputeHash(b, "0")
	require.NoError(t, err)
	h2, err := ComputeHash(b, "0")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestComputeHash_ChangesWithNonce(t *testing.T) {
	b := sampleBlock()
	h1, err := ComputeHash(b, "0")
	require.NoError(t, err)
	h2, err := ComputeHash(b, "1")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestComputeHash_IgnoresExistingHashField(t *testing.T) {
	b := sampleBlock()
	b.Hash = "some-stale-value"
	withStale, err := ComputeHash(b, "0")
	require.NoError(t, err)

	b2 := sampleBlock()
	withoutStale, err := ComputeHash(b2, "0")
	require.NoError(t, err)

	assert.Equal(t, withoutStale, withStale)
}

func TestComputeHash_ChangesWithAnyField(t *testing.T) {
	base := sampleBlock()
	baseHash, err := ComputeHash(base, "0")
	require.NoError(t, err)

	mutated := sampleBlock()
	mutated.Creator = "node-2"
	mutatedHash, err := ComputeHash(mutated, "0")
	require.NoError(t, err)

	assert.NotEqual(t, baseHash, mutatedHash)
}

func TestComputeMerkleRoot_EmptyTransactions(t *testing.T) {
	root, err := ComputeMerkleRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, "", root)
}

func TestComputeMerkleRoot_WiresLeafHashes(t *testing.T) {
	txs := []*tx.Transaction{
		{ID: "1", Sender: "a", Receiver: "b", Amount: 1, Timestamp: "t"},
		{ID: "2", Sender: "b", Receiver: "c", Amount: 2, Timestamp: "t"},
	}
	root, err := ComputeMerkleRoot(txs)
	require.NoError(t, err)
	assert.Len(t, root, 64)

	// Changing a transaction changes the root.
	txs[0].Amount = 99
	root2, err := ComputeMerkleRoot(txs)
	require.NoError(t, err)
	assert.NotEqual(t, root, root2)
}

func TestNonceString(t *testing.T) {
	assert.Equal(t, "0", NonceString(0))
	assert.Equal(t, "42", NonceString(42))
}
