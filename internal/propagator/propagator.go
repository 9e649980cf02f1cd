// Package propagator fans out blocks, transactions, and peer lists to
// every active overlay connection in parallel, with a retry-then-evict
// failure policy. Callers treat it as fire-and-forget: delivery is
// best-effort, and receivers deduplicate via seen.
package propagator

import (
	"context"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/netclient"
	"github.com/floodnet/node/internal/overlay"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
)

// Propagator floods messages to the overlay's active-connection set.
type Propagator struct {
	overlay *overlay.Manager
	client  *netclient.Client
}

// New creates a Propagator over the given overlay manager.
func New(om *overlay.Manager) *Propagator {
	return &Propagator{overlay: om, client: netclient.New()}
}

// Block floods a newly-accepted block to every active peer, in parallel.
func (p *Propagator) Block(b *block.Block) {
	p.fanOut(func(peerURL string) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()
		var resp wire.StatusOnlyResponse
		return p.client.PostJSON(ctx, peerURL+"/block", b, &resp)
	})
}

// Transaction floods a newly-accepted transaction to every active peer.
func (p *Propagator) Transaction(t *tx.Transaction) {
	p.fanOut(func(peerURL string) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()
		var resp wire.StatusOnlyResponse
		return p.client.PostJSON(ctx, peerURL+"/inv", t, &resp)
	})
}

// PeerList floods the known-peer table to every active peer. Intended to
// be called on a PeerListInterval ticker.
func (p *Propagator) PeerList(peers []wire.PeerDTO) {
	req := wire.SyncRequest{Peers: peers}
	p.fanOut(func(peerURL string) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()
		var resp wire.SyncResponse
		return p.client.PostJSON(ctx, peerURL+"/sync", req, &resp)
	})
}

// RunPeerListLoop periodically floods the known-peer list until stop
// fires. Call in a goroutine.
func (p *Propagator) RunPeerListLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(config.PeerListInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			known := p.overlay.KnownPeers()
			dtos := make([]wire.PeerDTO, len(known))
			for i, kp := range known {
				dtos[i] = kp.DTO()
			}
			p.PeerList(dtos)
		}
	}
}

// fanOut sends send to every active peer concurrently, applying the
// retry-then-evict policy to failures.
func (p *Propagator) fanOut(send func(peerURL string) error) {
	active := p.overlay.ActivePeers()
	if len(active) == 0 {
		return
	}

	done := make(chan struct{}, len(active))
	for _, peer := range active {
		peer := peer
		go func() {
			defer func() { done <- struct{}{} }()
			p.deliver(peer, send)
		}()
	}
	for range active {
		<-done
	}
}

// deliver sends to one peer; on failure it records the failure and
// schedules exactly one bulk retry after BulkRetryDelay. If the retry
// fails too, the second failure is recorded and the peer is evicted.
func (p *Propagator) deliver(peer *overlay.Peer, send func(peerURL string) error) {
	url := peer.URL()
	if err := send(url); err == nil {
		p.overlay.RecordSuccess(peer.NodeID)
		return
	}

	p.overlay.RecordFailure(peer.NodeID)
	time.Sleep(config.BulkRetryDelay)

	if err := send(url); err == nil {
		p.overlay.RecordSuccess(peer.NodeID)
		return
	}

	p.overlay.RecordFailure(peer.NodeID)
	klog.Propagator.Warn().Str("peer", peer.NodeID).Msg("peer evicted after repeated delivery failure")
	p.overlay.Evict(peer.NodeID)
}
