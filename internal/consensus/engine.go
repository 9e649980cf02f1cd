// Package consensus implements block and transaction acceptance, the
// chain-head selection rule, and fork reorganization over an
// internal/inventory.Store. It is the ConsensusEngine of the
// node: fork detection, head selection, and reorg
// (roll-back + re-apply), composing the InventoryStore.
package consensus

import (
	"fmt"

	"github.com/floodnet/node/config"
	"github.com/floodnet/node/internal/inventory"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
)

// Status values returned by AddBlock/AddTransaction, matching the wire
// vocabulary the HTTP API uses ("added" | "already_exists").
const (
	StatusAdded         = "added"
	StatusAlreadyExists = "already_exists"
)

// Engine is the ConsensusEngine: it owns no state of its own beyond the
// difficulty parameter, composing a Store for everything else.
type Engine struct {
	store      *inventory.Store
	difficulty int
}

// New creates a ConsensusEngine over store with the given difficulty
// (minimum leading hex zeros required of a non-genesis block's hash). A
// negative difficulty falls back to config.Difficulty; zero is a valid
// explicit choice (no proof-of-work requirement, useful for local
// development and tests).
func New(store *inventory.Store, difficulty int) *Engine {
	if difficulty < 0 {
		difficulty = config.Difficulty
	}
	return &Engine{store: store, difficulty: difficulty}
}

// Store returns the underlying inventory store (used by the server and
// miner for read-only queries).
func (e *Engine) Store() *inventory.Store { return e.store }

// AddBlock validates and inserts a block, running
// consensus and flooding to the supplied broadcaster on success. publish
// may be nil (e.g. when replaying during startup recovery or tests).
func (e *Engine) AddBlock(b *block.Block, publish func(*block.Block)) (string, error) {
	e.store.Lock()
	defer e.store.Unlock()

	if e.store.Seen(b.Hash) {
		return StatusAlreadyExists, nil
	}

	if b.IsGenesis {
		return e.addGenesisLocked(b, publish)
	}
	return e.addRegularLocked(b, publish)
}

func (e *Engine) addGenesisLocked(b *block.Block, publish func(*block.Block)) (string, error) {
	if e.store.Head() != "" {
		return "", fmt.Errorf("genesis already exists")
	}
	if err := block.VerifyHash(b); err != nil {
		return "", fmt.Errorf("genesis hash invalid: %w", err)
	}

	e.store.PutBlock(b, 0)
	e.store.MarkSeen(b.Hash)
	e.store.SetHead(b.Hash)
	e.store.Credit(b.Creator, config.GenesisEndowment)

	klog.Consensus.Info().Str("hash", b.Hash).Str("creator", b.Creator).Msg("genesis block accepted")

	if publish != nil {
		publish(b)
	}
	return StatusAdded, nil
}

func (e *Engine) addRegularLocked(b *block.Block, publish func(*block.Block)) (string, error) {
	if err := block.VerifyHash(b); err != nil {
		return "", err
	}
	if !block.MeetsDifficulty(b.Hash, e.difficulty) {
		return "", fmt.Errorf("block hash %s does not meet difficulty %d", b.Hash, e.difficulty)
	}

	parentHeight, parentKnown := e.store.HeightOf(b.PreviousHash)
	if !parentKnown && b.PreviousHash != "" {
		// Orphan: stored, but not yet height-assigned or consensus-eligible.
		e.store.QueueOrphan(b)
		e.store.MarkSeen(b.Hash)
		klog.Consensus.Warn().Str("hash", b.Hash).Str("previousHash", b.PreviousHash).
			Msg("orphan block queued, parent unknown")
		if publish != nil {
			publish(b)
		}
		return StatusAdded, nil
	}

	if err := e.validateTransactionsLocked(b.Transactions); err != nil {
		return "", fmt.Errorf("transaction validation failed: %w", err)
	}

	height := parentHeight + 1
	e.store.PutBlock(b, height)
	e.store.MarkSeen(b.Hash)

	e.runConsensusLocked(b, height)
	e.attachOrphansLocked(b.Hash, height)

	if publish != nil {
		publish(b)
	}
	return StatusAdded, nil
}

// attachOrphansLocked recursively reattaches any previously-queued orphan
// blocks whose previousHash now resolves to a known block, assigning each
// its true height rather than a guessed placeholder.
func (e *Engine) attachOrphansLocked(parentHash string, parentHeight int64) {
	children := e.store.TakeOrphans(parentHash)
	for _, child := range children {
		if err := e.validateTransactionsLocked(child.Transactions); err != nil {
			klog.Consensus.Warn().Str("hash", child.Hash).Err(err).Msg("orphan failed validation on attach, dropping")
			continue
		}
		height := parentHeight + 1
		e.store.PutBlock(child, height)
		e.runConsensusLocked(child, height)
		e.attachOrphansLocked(child.Hash, height)
	}
}

// validateTransactionsLocked simulates transactions in order against a
// shadow copy of balances; every transaction must have a positive amount
// and the sender must have sufficient balance at its position.
func (e *Engine) validateTransactionsLocked(txs []*tx.Transaction) error {
	shadow := e.store.Balances()
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return err
		}
		if shadow[t.Sender] < t.Amount {
			return fmt.Errorf("insufficient balance: %s has %d, needs %d", t.Sender, shadow[t.Sender], t.Amount)
		}
		shadow[t.Sender] -= t.Amount
		shadow[t.Receiver] += t.Amount
	}
	return nil
}

// applyTransactionsLocked applies a block's transactions to the balance
// ledger and drops them from the pending pool. Only ever called for a
// block that is becoming (or already is) part of the canonical chain —
// side-branch blocks are stored with their transaction effects left
// unapplied until, if ever, a reorg brings them onto the canonical chain.
func (e *Engine) applyTransactionsLocked(txs []*tx.Transaction) {
	for _, t := range txs {
		e.store.Credit(t.Sender, -t.Amount)
		e.store.Credit(t.Receiver, t.Amount)
		e.store.PendingRemove(t.ID)
	}
}

// runConsensusLocked applies the chain-head selection rule (longest chain,
// ties broken by lexicographically smaller hash) to a newly-inserted,
// non-orphan block. Transaction effects are applied here, not at insert
// time, so a block that loses the race to become head never touches the
// balance ledger.
func (e *Engine) runConsensusLocked(b *block.Block, height int64) {
	head := e.store.Head()
	if head == "" {
		e.store.SetHead(b.Hash)
		e.applyTransactionsLocked(b.Transactions)
		return
	}
	if head == b.Hash {
		return
	}
	headHeight, _ := e.store.HeightOf(head)

	switch {
	case height > headHeight:
		e.reorgLocked(head, b.Hash)
	case height == headHeight && b.Hash < head:
		e.reorgLocked(head, b.Hash)
	default:
		// Retain current head; b is stored as a side branch with its
		// transaction effects left unapplied.
	}
}

// AddTransaction validates and inserts a transaction,
// flooding it to publish on success.
func (e *Engine) AddTransaction(t *tx.Transaction, publish func(*tx.Transaction)) (string, error) {
	e.store.Lock()
	defer e.store.Unlock()

	if e.store.Seen(t.ID) {
		return StatusAlreadyExists, nil
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	if e.store.Balance(t.Sender) < t.Amount {
		return "", fmt.Errorf("insufficient balance: %s has %d, needs %d", t.Sender, e.store.Balance(t.Sender), t.Amount)
	}

	e.store.PendingPut(t)
	e.store.MarkSeen(t.ID)

	if publish != nil {
		publish(t)
	}
	return StatusAdded, nil
}

// Balances returns a snapshot of the full balance ledger.
func (e *Engine) Balances() map[string]int64 {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.store.Balances()
}

// AllBlocks returns every stored block (main chain and forks). Orphans
// still waiting in the orphan queue for their parent are not included.
func (e *Engine) AllBlocks() []*block.Block {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.store.AllBlocks()
}

// BlockCount returns the total number of stored blocks.
func (e *Engine) BlockCount() int {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.store.BlockCount()
}

// GetBlock returns a block by hash, or nil.
func (e *Engine) GetBlock(hash string) *block.Block {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.store.GetBlock(hash)
}

// GetMainChain walks from the head to genesis via PreviousHash and
// reverses, returning blocks in ascending height order.
func (e *Engine) GetMainChain() []*block.Block {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.mainChainLocked()
}

func (e *Engine) mainChainLocked() []*block.Block {
	head := e.store.Head()
	if head == "" {
		return nil
	}
	var chain []*block.Block
	hash := head
	for hash != "" {
		b := e.store.GetBlock(hash)
		if b == nil {
			break
		}
		chain = append(chain, b)
		if b.IsGenesis {
			break
		}
		hash = b.PreviousHash
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Summary is the consensus metadata returned by GetInventory/GET /consensus.
type Summary struct {
	CurrentHead  string       `json:"currentHead"`
	ChainHeight  int64        `json:"chainHeight"`
	HeadBlock    *block.Block `json:"headBlock,omitempty"`
	TotalBlocks  int          `json:"totalBlocks"`
	ForkedBlocks int          `json:"forkedBlocks"`
}

// ConsensusSummary returns the current head metadata.
func (e *Engine) ConsensusSummary() Summary {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.summaryLocked()
}

func (e *Engine) summaryLocked() Summary {
	head := e.store.Head()
	height, _ := e.store.HeightOf(head)
	total := e.store.BlockCount()
	forked := total - int(height+1)
	if forked < 0 {
		forked = 0
	}
	return Summary{
		CurrentHead:  head,
		ChainHeight:  height,
		HeadBlock:    e.store.GetBlock(head),
		TotalBlocks:  total,
		ForkedBlocks: forked,
	}
}

// Inventory is the payload returned by GET /inventory.
type Inventory struct {
	Blocks       []string          `json:"blocks"`
	Transactions []*tx.Transaction `json:"transactions"`
	Balances     map[string]int64  `json:"balances"`
	Consensus    Summary           `json:"consensus"`
}

// GetInventory returns the full inventory snapshot.
func (e *Engine) GetInventory() Inventory {
	e.store.RLock()
	defer e.store.RUnlock()

	blocks := e.store.AllBlocks()
	hashes := make([]string, len(blocks))
	for i, b := range blocks {
		hashes[i] = b.Hash
	}

	return Inventory{
		Blocks:       hashes,
		Transactions: e.store.PendingAll(),
		Balances:     e.store.Balances(),
		Consensus:    e.summaryLocked(),
	}
}
