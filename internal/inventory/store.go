// Package inventory holds the node's in-memory chain and pool state:
// blocks by hash, heights, the pending transaction pool, the seen-message
// dedup set, and the balance ledger. It provides the low-level, lock-
// protected primitives; internal/consensus composes them into the
// block/transaction acceptance and reorg logic.
package inventory

import (
	"sync"

	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
)

// Store is the node's single in-memory inventory. All mutation goes
// through its methods. The methods take no lock themselves: callers
// (internal/consensus) serialize access by holding mu through
// Lock/RLock — the single reader-writer lock guarding the
// inventory/consensus side.
type Store struct {
	mu sync.RWMutex

	blocksByHash map[string]*block.Block
	heightOf     map[string]int64
	pending      map[string]*tx.Transaction
	seen         map[string]struct{}
	balances     map[string]int64

	// orphans holds blocks whose previousHash is not yet known, keyed by
	// that missing previousHash. When the ancestor arrives, every orphan
	// waiting on it is reattached with its true height rather than a
	// guessed placeholder.
	orphans map[string][]*block.Block

	blockchainHead string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		blocksByHash: make(map[string]*block.Block),
		heightOf:     make(map[string]int64),
		pending:      make(map[string]*tx.Transaction),
		seen:         make(map[string]struct{}),
		balances:     make(map[string]int64),
		orphans:      make(map[string][]*block.Block),
	}
}

// Lock/Unlock/RLock/RUnlock are exported so internal/consensus can compose
// multi-step operations (e.g. AddBlock, Reorg) atomically with respect to
// other inventory mutations.
func (s *Store) Lock()    { s.mu.Lock() }
func (s *Store) Unlock()  { s.mu.Unlock() }
func (s *Store) RLock()   { s.mu.RLock() }
func (s *Store) RUnlock() { s.mu.RUnlock() }

// --- seen set -----------------------------------------------------------

// Seen reports whether id has already been processed. Must be called
// under a held lock (RLock or Lock).
func (s *Store) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// MarkSeen records id as processed. seen only grows for the process
// lifetime — no removal method exists.
func (s *Store) MarkSeen(id string) {
	s.seen[id] = struct{}{}
}

// --- blocks ---------------------------------------------------------------

// GetBlock returns the block with the given hash, or nil if unknown.
func (s *Store) GetBlock(hash string) *block.Block {
	return s.blocksByHash[hash]
}

// PutBlock inserts a block into the store at the given height.
func (s *Store) PutBlock(b *block.Block, height int64) {
	s.blocksByHash[b.Hash] = b
	s.heightOf[b.Hash] = height
}

// HeightOf returns the height of a known block hash and whether it is known.
func (s *Store) HeightOf(hash string) (int64, bool) {
	h, ok := s.heightOf[hash]
	return h, ok
}

// Head returns the current chain head hash ("" if no block exists yet).
func (s *Store) Head() string {
	return s.blockchainHead
}

// SetHead updates the chain head.
func (s *Store) SetHead(hash string) {
	s.blockchainHead = hash
}

// BlockCount returns the total number of stored blocks (including side
// branches; orphans still waiting in the orphan queue are not counted).
func (s *Store) BlockCount() int {
	return len(s.blocksByHash)
}

// AllBlocks returns every stored block in no particular order.
func (s *Store) AllBlocks() []*block.Block {
	out := make([]*block.Block, 0, len(s.blocksByHash))
	for _, b := range s.blocksByHash {
		out = append(out, b)
	}
	return out
}

// --- orphans ----------------------------------------------------------------

// QueueOrphan stashes a block whose parent is not yet known.
func (s *Store) QueueOrphan(b *block.Block) {
	s.orphans[b.PreviousHash] = append(s.orphans[b.PreviousHash], b)
}

// TakeOrphans removes and returns every orphan waiting on parentHash.
func (s *Store) TakeOrphans(parentHash string) []*block.Block {
	children := s.orphans[parentHash]
	delete(s.orphans, parentHash)
	return children
}

// --- pending pool -------------------------------------------------------

// PendingPut inserts a transaction into the pending pool.
func (s *Store) PendingPut(t *tx.Transaction) {
	s.pending[t.ID] = t
}

// PendingRemove deletes a transaction from the pending pool by id.
func (s *Store) PendingRemove(id string) {
	delete(s.pending, id)
}

// PendingAll returns a snapshot of every pending transaction.
func (s *Store) PendingAll() []*tx.Transaction {
	out := make([]*tx.Transaction, 0, len(s.pending))
	for _, t := range s.pending {
		out = append(out, t)
	}
	return out
}

// --- balances -------------------------------------------------------------

// Balance returns the current balance of nodeID (0 if never credited).
func (s *Store) Balance(nodeID string) int64 {
	return s.balances[nodeID]
}

// Credit adds amount to nodeID's balance (amount may be negative, used by
// reorg to reverse a transaction's effect).
func (s *Store) Credit(nodeID string, amount int64) {
	s.balances[nodeID] += amount
}

// Balances returns a copy of the full balance ledger.
func (s *Store) Balances() map[string]int64 {
	out := make(map[string]int64, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out
}
