// Package overlay implements the OverlayManager: the known-peer table,
// the active-connection table, group-balanced connection caps, the
// peer-exchange loop, and health-driven eviction/replacement.
package overlay

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/netclient"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/types"
)

// Manager owns the peer tables. All access is serialized under a single
// overlay lock.
type Manager struct {
	mu sync.RWMutex

	selfID    string
	selfGroup string
	selfIP    string
	selfPort  int

	known  map[string]*Peer
	active map[string]*Peer

	client *netclient.Client

	exchanging int32 // atomic single-flight guard for RunExchangeLoop

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Manager for the local node identified by selfID/selfIP/selfPort.
func New(selfID, selfIP string, selfPort int) *Manager {
	return &Manager{
		selfID:    selfID,
		selfGroup: types.Group(selfID),
		selfIP:    selfIP,
		selfPort:  selfPort,
		known:     make(map[string]*Peer),
		active:    make(map[string]*Peer),
		client:    netclient.New(),
		stop:      make(chan struct{}),
	}
}

// Stop signals every running background loop to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// --- known/active queries -----------------------------------------------

// KnownPeers returns a snapshot of every known peer.
func (m *Manager) KnownPeers() []*Peer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(m.known)
}

// ActivePeers returns a snapshot of the active-connection set.
func (m *Manager) ActivePeers() []*Peer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(m.active)
}

func (m *Manager) snapshotLocked(table map[string]*Peer) []*Peer {
	out := make([]*Peer, 0, len(table))
	for _, p := range table {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// ConnectionsByGroup reports active-connection counts keyed by group
// character, for GET /status.
func (m *Manager) ConnectionsByGroup() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, p := range m.active {
		out[p.Group]++
	}
	return out
}

// countsLocked returns (internal active, external active) under a held lock.
func (m *Manager) countsLocked() (internal, external int) {
	for _, p := range m.active {
		if p.Group == m.selfGroup {
			internal++
		} else {
			external++
		}
	}
	return
}

// capAvailableLocked reports whether the cap for a peer of the given
// group still has room. tryEstablishConnection calls it before the
// /ping (intent) and again before inserting into the active set
// (post-ping); peer-exchange candidates go through that path. Bootstrap
// calls it before adding a responder to the active set.
func (m *Manager) capAvailableLocked(group string) bool {
	internal, external := m.countsLocked()
	if group == m.selfGroup {
		return internal < config.MaxInternalConnections
	}
	return external < config.MaxExternalConnections
}

// LearnPeer records p in the known-peer table if it is new or refreshes
// it if already known. The local node itself is never learned.
func (m *Manager) LearnPeer(p *Peer) {
	if p == nil || p.NodeID == "" || p.NodeID == m.selfID {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learnLocked(p)
}

func (m *Manager) learnLocked(p *Peer) {
	if existing, ok := m.known[p.NodeID]; ok {
		existing.IP = p.IP
		existing.Port = p.Port
		return
	}
	cp := *p
	cp.Group = types.Group(p.NodeID)
	m.known[p.NodeID] = &cp
}

// SelfDTO returns this node's own peer advertisement.
func (m *Manager) SelfDTO() wire.PeerDTO {
	return wire.PeerDTO{IP: m.selfIP, Port: m.selfPort, NodeID: m.selfID}
}

// tryEstablishConnection verifies caps, GETs /ping, verifies caps again,
// then inserts into the active set and learns the peer if it was not
// already known.
func (m *Manager) tryEstablishConnection(p *Peer) bool {
	m.mu.Lock()
	if _, already := m.active[p.NodeID]; already {
		m.mu.Unlock()
		return true
	}
	if !m.capAvailableLocked(p.Group) {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()
	var ping wire.PingResponse
	err := m.client.Get(ctx, peerURL(p, "/ping"), &ping)
	if err != nil || ping.Status != "alive" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.capAvailableLocked(p.Group) {
		return false
	}
	p.LastSeen = time.Now()
	p.Retries = 0
	cp := *p
	m.active[p.NodeID] = &cp
	m.learnLocked(p)
	return true
}

func peerURL(p *Peer, path string) string {
	return "http://" + p.IP + ":" + strconv.Itoa(p.Port) + path
}

// evictLocked removes a peer from the active set; it stays in the
// known-peer table.
func (m *Manager) evictLocked(nodeID string) {
	delete(m.active, nodeID)
	klog.Overlay.Info().Str("peer", nodeID).Msg("peer evicted")
}

// Evict removes a peer from the active set (used by the propagator on
// persistent delivery failure).
func (m *Manager) Evict(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.known[nodeID]
	var g string
	if ok {
		g = group.Group
	}
	m.evictLocked(nodeID)
	if ok {
		m.tryReplaceDisconnectedPeerLocked(g)
	}
}

// RecordSuccess resets a peer's retry counter and refreshes lastSeen,
// used after a successful propagation delivery or health check.
func (m *Manager) RecordSuccess(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.active[nodeID]; ok {
		p.Retries = 0
		p.LastSeen = time.Now()
	}
}

// RecordFailure increments a peer's retry counter and returns the new
// count, used by the propagator's retry-then-evict policy.
func (m *Manager) RecordFailure(nodeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.active[nodeID]
	if !ok {
		return config.MaxPeerRetries + 1 // already gone; caller should stop retrying
	}
	p.Retries++
	return p.Retries
}
