package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PopulatesFields(t *testing.T) {
	txn := New("alice", "bob", 10)
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, "alice", txn.Sender)
	assert.Equal(t, "bob", txn.Receiver)
	assert.Equal(t, int64(10), txn.Amount)
	assert.NotEmpty(t, txn.Timestamp)
}

func TestValidate_Nil(t *testing.T) {
	var txn *Transaction
	assert.Error(t, txn.Validate())
}

func TestValidate_MissingID(t *testing.T) {
	txn := &Transaction{Sender: "alice", Receiver: "bob", Amount: 1}
	assert.Error(t, txn.Validate())
}

func TestValidate_MissingSenderOrReceiver(t *testing.T) {
	txn := New("alice", "bob", 1)

	noSender := *txn
	noSender.Sender = ""
	assert.Error(t, noSender.Validate())

	noReceiver := *txn
	noReceiver.Receiver = ""
	assert.Error(t, noReceiver.Validate())
}

func TestValidate_SenderEqualsReceiver(t *testing.T) {
	txn := New("alice", "alice", 5)
	assert.Error(t, txn.Validate())
}

func TestValidate_NonPositiveAmount(t *testing.T) {
	zero := New("alice", "bob", 0)
	assert.Error(t, zero.Validate())

	negative := New("alice", "bob", -3)
	assert.Error(t, negative.Validate())
}

func TestValidate_Valid(t *testing.T) {
	txn := New("alice", "bob", 1)
	assert.NoError(t, txn.Validate())
}

func TestCanonicalBytes_FieldOrderMatchesDeclaration(t *testing.T) {
	txn := &Transaction{
		ID:        "id1",
		Sender:    "alice",
		Receiver:  "bob",
		Amount:    7,
		Timestamp: "2026-01-01T00:00:00Z",
	}
	b, err := txn.CanonicalBytes()
	require.NoError(t, err)
	want := `{"id":"id1","sender":"alice","receiver":"bob","amount":7,"timestamp":"2026-01-01T00:00:00Z"}`
	assert.Equal(t, want, string(b))
}

func TestLeafHash_Deterministic(t *testing.T) {
	txn := &Transaction{
		ID:        "id1",
		Sender:    "alice",
		Receiver:  "bob",
		Amount:    7,
		Timestamp: "2026-01-01T00:00:00Z",
	}
	h1, err := txn.LeafHash()
	require.NoError(t, err)
	h2, err := txn.LeafHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestLeafHash_DiffersOnAmountChange(t *testing.T) {
	a := &Transaction{ID: "id1", Sender: "alice", Receiver: "bob", Amount: 7, Timestamp: "t"}
	b := &Transaction{ID: "id1", Sender: "alice", Receiver: "bob", Amount: 8, Timestamp: "t"}

	ha, err := a.LeafHash()
	require.NoError(t, err)
	hb, err := b.LeafHash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}
