// Package miner implements proof-of-work block construction as an HTTP
// client of the local node's own REST API, speaking plain REST to
// /inventory, /getblocks, and /block rather than driving an in-process
// ConsensusEngine directly.
package miner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/netclient"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/block"
)

// ZeroHash is the all-zero previousHash used when a node has no blocks
// yet and no explicit previousHash was supplied.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Result reports the outcome of one mining attempt.
type Result struct {
	Block    *block.Block
	Attempts uint64
	Included bool
	Status   string
	Elapsed  time.Duration
}

// Miner runs a single mining attempt per invocation against a local node
// reachable at baseURL (e.g. "http://127.0.0.1:8080").
type Miner struct {
	baseURL    string
	nodeID     string
	difficulty int
	client     *netclient.Client
}

// New creates a Miner targeting the node at baseURL, mining on behalf of
// creator nodeID. A negative difficulty falls back to config.Difficulty;
// zero is a valid explicit choice (no proof-of-work requirement).
func New(baseURL, nodeID string, difficulty int) *Miner {
	if difficulty < 0 {
		difficulty = config.Difficulty
	}
	return &Miner{
		baseURL:    baseURL,
		nodeID:     nodeID,
		difficulty: difficulty,
		client:     netclient.New(),
	}
}

// Mine runs one mining attempt: fetch pending transactions,
// determine the previous hash, search for a valid nonce, submit the
// block, and poll briefly to confirm inclusion.
func (m *Miner) Mine(ctx context.Context, previousHash string) (*Result, error) {
	start := time.Now()

	var inv wire.InventoryResponse
	if err := m.client.Get(ctx, m.baseURL+"/inventory", &inv); err != nil {
		return nil, fmt.Errorf("fetch inventory: %w", err)
	}
	if len(inv.Transactions) == 0 {
		return nil, fmt.Errorf("no pending transactions to mine")
	}

	selected := inv.Transactions
	sort.Slice(selected, func(i, j int) bool { return selected[i].Timestamp < selected[j].Timestamp })
	if len(selected) > config.MaxTxPerBlock {
		selected = selected[:config.MaxTxPerBlock]
	}

	if previousHash == "" {
		ph, err := m.resolvePreviousHash(ctx)
		if err != nil {
			return nil, err
		}
		previousHash = ph
	}

	merkle, err := block.ComputeMerkleRoot(selected)
	if err != nil {
		return nil, fmt.Errorf("compute merkle root: %w", err)
	}

	candidate := &block.Block{
		IsGenesis:    false,
		PreviousHash: previousHash,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Creator:      m.nodeID,
		MerkleRoot:   merkle,
		Count:        len(selected),
		Transactions: selected,
	}

	attempts, hash, nonce, err := m.search(ctx, candidate)
	if err != nil {
		return nil, err
	}
	candidate.Nonce = nonce
	candidate.Hash = hash

	klog.Miner.Info().Str("hash", hash).Uint64("attempts", attempts).Msg("block sealed")

	var submitResp wire.StatusOnlyResponse
	if err := m.client.PostJSON(ctx, m.baseURL+"/block", candidate, &submitResp); err != nil {
		return nil, fmt.Errorf("submit block: %w", err)
	}

	included := m.pollForInclusion(ctx, hash)

	return &Result{
		Block:    candidate,
		Attempts: attempts,
		Included: included,
		Status:   submitResp.Status,
		Elapsed:  time.Since(start),
	}, nil
}

// search iterates nonce = 1, 2, … computing blockHash(candidate, nonce)
// until it begins with m.difficulty hex zeros. It is
// CPU-bound and does not suspend, except to check ctx between attempts.
func (m *Miner) search(ctx context.Context, candidate *block.Block) (attempts uint64, hash, nonce string, err error) {
	for n := uint64(1); ; n++ {
		select {
		case <-ctx.Done():
			return attempts, "", "", ctx.Err()
		default:
		}

		nonceStr := strconv.FormatUint(n, 10)
		h, err := block.ComputeHash(candidate, nonceStr)
		if err != nil {
			return attempts, "", "", fmt.Errorf("compute candidate hash: %w", err)
		}
		attempts++
		if block.MeetsDifficulty(h, m.difficulty) {
			return attempts, h, nonceStr, nil
		}
	}
}

// resolvePreviousHash takes the last block from /getblocks?mainchain=true,
// or ZeroHash if the chain is empty.
func (m *Miner) resolvePreviousHash(ctx context.Context) (string, error) {
	var chain []*block.Block
	if err := m.client.Get(ctx, m.baseURL+"/getblocks?mainchain=true", &chain); err != nil {
		return "", fmt.Errorf("fetch main chain: %w", err)
	}
	if len(chain) == 0 {
		return ZeroHash, nil
	}
	return chain[len(chain)-1].Hash, nil
}

// pollForInclusion polls /inventory briefly to verify the mined block
// was accepted onto some known chain. Failure here does not roll back
// the submission; the block may still be accepted after this returns.
func (m *Miner) pollForInclusion(ctx context.Context, hash string) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var inv wire.InventoryResponse
		if err := m.client.Get(ctx, m.baseURL+"/inventory", &inv); err == nil {
			for _, h := range inv.Blocks {
				if h == hash {
					return true
				}
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(200 * time.Millisecond):
		}
	}
	return false
}
