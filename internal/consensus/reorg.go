package consensus

import (
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/pkg/block"
)

// chainFromLocked walks from hash back to genesis via PreviousHash and
// returns the blocks in ascending height order (genesis first). Must be
// called with the store lock held.
func (e *Engine) chainFromLocked(hash string) []*block.Block {
	var chain []*block.Block
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

// reorgLocked switches the chain head from oldHead to newHead: it finds
// the common ancestor, reverses the abandoned branch's transaction
// effects (restoring its transactions to pending), and replays the new
// branch's transactions. Must be called with the store lock held.
func (e *Engine) reorgLocked(oldHead, newHead string) {
	oldChain := e.chainFromLocked(oldHead)
	newChain := e.chainFromLocked(newHead)

	k := 0
	for k < len(oldChain) && k < len(newChain) && oldChain[k].Hash == newChain[k].Hash {
		k++
	}

	// Revert the abandoned branch in reverse order.
	for i := len(oldChain) - 1; i >= k; i-- {
		b := oldChain[i]
		for _, t := range b.Transactions {
			e.store.Credit(t.Sender, t.Amount)
			e.store.Credit(t.Receiver, -t.Amount)
			e.store.PendingPut(t)
		}
	}

	// Apply the new branch in order.
	for i := k; i < len(newChain); i++ {
		e.applyTransactionsLocked(newChain[i].Transactions)
	}

	e.store.SetHead(newHead)

	klog.Consensus.Info().
		Str("oldHead", oldHead).
		Str("newHead", newHead).
		Int("commonPrefix", k).
		Msg("chain reorganization complete")
}
