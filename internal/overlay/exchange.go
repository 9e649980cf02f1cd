package overlay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/wire"
)

// RunExchangeLoop runs the peer-exchange loop every PeerExchangeInterval
// until Stop is called. Call in a goroutine. The single-flight guard
// lives on m.exchanging: if a prior tick is still running, the next
// tick is skipped rather than queued.
func (m *Manager) RunExchangeLoop() {
	ticker := time.NewTicker(config.PeerExchangeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&m.exchanging, 0, 1) {
				continue // prior tick still running
			}
			m.exchangeOnce()
			atomic.StoreInt32(&m.exchanging, 0)
		}
	}
}

// exchangeOnce runs one pass of the peer-exchange algorithm.
func (m *Manager) exchangeOnce() {
	m.mu.RLock()
	internalN, externalN := m.countsLocked()
	bothSaturated := internalN >= config.MaxInternalConnections && externalN >= config.MaxExternalConnections
	active := m.snapshotLocked(m.active)
	m.mu.RUnlock()

	if bothSaturated {
		return
	}

	for _, p := range active {
		if p.Retries > config.MaxPeerRetries {
			continue
		}
		m.exchangeWithPeer(p)
	}
}

func (m *Manager) exchangeWithPeer(p *Peer) {
	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()

	var peers []wire.PeerDTO
	err := m.client.Get(ctx, peerURL(p, "/peers"), &peers)
	if err != nil {
		m.recordExchangeFailure(p)
		return
	}

	m.mu.Lock()
	if live, ok := m.active[p.NodeID]; ok {
		live.Retries = 0
		live.LastSeen = time.Now()
	}
	m.mu.Unlock()

	for _, d := range shuffledDTOs(peers) {
		if d.NodeID == "" || d.NodeID == m.selfID {
			continue
		}
		candidate := dtoToPeer(d, time.Now())
		m.LearnPeer(candidate)
		m.tryEstablishConnection(candidate)
	}
}

func (m *Manager) recordExchangeFailure(p *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live, ok := m.active[p.NodeID]
	if !ok {
		return
	}
	live.Retries++
	if live.Retries <= config.MaxPeerRetries {
		return
	}

	group := live.Group
	m.evictLocked(p.NodeID)
	m.tryReplaceDisconnectedPeerLocked(group)
}

// tryReplaceDisconnectedPeerLocked searches known-but-not-active peers
// of the given group for a replacement. Must be called
// with the lock held; it releases and reacquires it to attempt the
// connection without deadlocking tryEstablishConnection.
func (m *Manager) tryReplaceDisconnectedPeerLocked(group string) {
	var candidates []*Peer
	for id, p := range m.known {
		if _, active := m.active[id]; active {
			continue
		}
		if p.Group == group {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return
	}

	m.mu.Unlock()
	defer m.mu.Lock()

	for _, p := range shuffled(candidates) {
		cp := *p
		if m.tryEstablishConnection(&cp) {
			klog.Overlay.Info().Str("peer", cp.NodeID).Msg("replacement peer connected")
			return
		}
	}
}
