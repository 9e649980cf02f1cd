// Package tx defines the Transaction type and its validation rules.
package tx

import (
	"fmt"
	"time"

	"github.com/floodnet/node/pkg/hasher"
	"github.com/floodnet/node/pkg/types"
)

// Transaction moves a positive integer amount from sender to receiver.
// It is immutable once accepted into the pending pool: fields are set at
// construction time and never mutated afterward.
type Transaction struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    int64  `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// New builds a transaction with a fresh id and the current timestamp.
func New(sender, receiver string, amount int64) *Transaction {
	return &Transaction{
		ID:        types.NewTxID(),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Validate checks the structural requirements of a transaction: required
// fields present and a strictly positive amount. It does not check
// balances — that is the caller's (the consensus engine's) job, since it
// requires chain state.
func (t *Transaction) Validate() error {
	if t == nil {
		return fmt.Errorf("nil transaction")
	}
	if t.ID == "" {
		return fmt.Errorf("transaction missing id")
	}
	if t.Sender == "" || t.Receiver == "" {
		return fmt.Errorf("transaction missing sender or receiver")
	}
	if t.Sender == t.Receiver {
		return fmt.Errorf("transaction sender and receiver must differ")
	}
	if t.Amount <= 0 {
		return fmt.Errorf("transaction amount must be positive, got %d", t.Amount)
	}
	return nil
}

// CanonicalBytes returns the byte form hashed to produce the transaction's
// Merkle leaf. encoding/json marshals struct fields in declaration order
// with no whitespace variance, which is sufficient for byte-exact
// canonicalization across independently-built peers.
func (t *Transaction) CanonicalBytes() ([]byte, error) {
	return canonicalMarshal(t)
}

// LeafHash returns the SHA-256 hex digest used as this transaction's
// Merkle-tree leaf.
func (t *Transaction) LeafHash() (string, error) {
	b, err := t.CanonicalBytes()
	if err != nil {
		return "", err
	}
	return hasher.Sha256Hex(b), nil
}
