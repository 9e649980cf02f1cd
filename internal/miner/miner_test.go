package miner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMine_SucceedsWithPendingTransactions(t *testing.T) {
	pending := []*tx.Transaction{
		{ID: "t1", Sender: "alice", Receiver: "bob", Amount: 5, Timestamp: "2026-01-01T00:00:00.001Z"},
		{ID: "t2", Sender: "alice", Receiver: "carol", Amount: 3, Timestamp: "2026-01-01T00:00:00.002Z"},
	}

	var submitted *block.Block
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.InventoryResponse{Transactions: pending})
	})
	mux.HandleFunc("/getblocks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*block.Block{{Hash: "parent-hash"}})
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		var b block.Block
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
		submitted = &b
		json.NewEncoder(w).Encode(wire.StatusOnlyResponse{Status: "added"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := New(srv.URL, "alice", 0)
	result, err := m.Mine(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "added", result.Status)
	assert.Equal(t, "parent-hash", result.Block.PreviousHash)
	assert.Len(t, result.Block.Transactions, 2)
	require.NotNil(t, submitted)
	assert.Equal(t, result.Block.Hash, submitted.Hash)
}

func TestMine_NoPendingTransactionsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.InventoryResponse{Transactions: nil})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := New(srv.URL, "alice", 0)
	_, err := m.Mine(context.Background(), "")
	assert.Error(t, err)
}

func TestMine_CapsTransactionsAtMaxPerBlockAndOrdersByTimestamp(t *testing.T) {
	pending := make([]*tx.Transaction, 0, 15)
	for i := 14; i >= 0; i-- {
		pending = append(pending, &tx.Transaction{
			ID: "t", Sender: "alice", Receiver: "bob", Amount: 1,
			Timestamp: fmt.Sprintf("2026-01-01T00:00:00.%03dZ", i),
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.InventoryResponse{Transactions: pending})
	})
	mux.HandleFunc("/getblocks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*block.Block{})
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.StatusOnlyResponse{Status: "added"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := New(srv.URL, "alice", 0)
	result, err := m.Mine(context.Background(), "")
	require.NoError(t, err)

	assert.Len(t, result.Block.Transactions, 10)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", result.Block.Transactions[0].Timestamp)
}

func TestMine_UsesZeroHashWhenChainEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.InventoryResponse{Transactions: []*tx.Transaction{
			{ID: "t1", Sender: "alice", Receiver: "bob", Amount: 1, Timestamp: "t"},
		}})
	})
	mux.HandleFunc("/getblocks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*block.Block{})
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wire.StatusOnlyResponse{Status: "added"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := New(srv.URL, "alice", 0)
	result, err := m.Mine(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ZeroHash, result.Block.PreviousHash)
}

func TestSearch_FindsNonceMeetingDifficultyZero(t *testing.T) {
	m := New("http://unused", "alice", 0)
	candidate := &block.Block{PreviousHash: "p", Creator: "alice"}

	attempts, hash, nonce, err := m.search(context.Background(), candidate)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), attempts)
	assert.Equal(t, "1", nonce)
	assert.Len(t, hash, 64)
}

func TestSearch_StopsOnContextCancel(t *testing.T) {
	m := New("http://unused", "alice", 64) // unsatisfiable difficulty
	candidate := &block.Block{PreviousHash: "p", Creator: "alice"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := m.search(ctx, candidate)
	assert.ErrorIs(t, err, context.Canceled)
}
