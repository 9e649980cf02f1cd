package overlay

import (
	"math/rand"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/types"
)

// Bootstrap connects to the initial set of peer addresses: for each one, call
// register (a POST /register against that address); on success add the
// responder as active (capped), merge its advertised peers up to the
// caps, and hand its carried inventory (blocks, pending transactions) to
// ingest. register and ingest are supplied by the server, which owns the
// HTTP client concern, the self-identity payload to send, and the
// consensus engine that inventory feeds into. ingest may be nil.
func (m *Manager) Bootstrap(addrs []string, register func(ip string, port int) (*wire.RegisterResponse, error), ingest func(*wire.RegisterResponse)) {
	for _, addr := range addrs {
		ip, port, err := types.ParseHostPort(addr)
		if err != nil {
			klog.Overlay.Warn().Str("addr", addr).Err(err).Msg("invalid bootstrap address")
			continue
		}

		resp, err := register(ip, port)
		if err != nil {
			klog.Overlay.Warn().Str("addr", addr).Err(err).Msg("bootstrap peer unreachable")
			continue
		}

		if ingest != nil {
			ingest(resp)
		}

		p := &Peer{NodeID: resp.NodeID, IP: resp.IP, Port: resp.Port, Group: types.Group(resp.NodeID)}
		if p.NodeID == "" || p.NodeID == m.selfID {
			continue
		}

		m.mu.Lock()
		if m.capAvailableLocked(p.Group) {
			p.LastSeen = time.Now()
			cp := *p
			m.active[p.NodeID] = &cp
		}
		m.learnLocked(p)
		for _, d := range shuffledDTOs(resp.Peers) {
			if d.NodeID == "" || d.NodeID == m.selfID {
				continue
			}
			candidate := dtoToPeer(d, time.Now())
			m.learnLocked(candidate)
		}
		m.mu.Unlock()

		klog.Overlay.Info().Str("addr", addr).Str("peer", p.NodeID).Msg("bootstrap succeeded")
	}

	m.fillCapsFromKnown()
}

// fillCapsFromKnown attempts tryEstablishConnection against known,
// inactive peers until both caps saturate or candidates run out.
func (m *Manager) fillCapsFromKnown() {
	for {
		m.mu.RLock()
		internalN, externalN := m.countsLocked()
		internalFull := internalN >= config.MaxInternalConnections
		externalFull := externalN >= config.MaxExternalConnections
		var candidates []*Peer
		for id, p := range m.known {
			if _, active := m.active[id]; active {
				continue
			}
			candidates = append(candidates, p)
		}
		m.mu.RUnlock()

		if (internalFull && externalFull) || len(candidates) == 0 {
			return
		}

		progressed := false
		for _, p := range shuffled(candidates) {
			if p.Group == m.selfGroup && internalFull {
				continue
			}
			if p.Group != m.selfGroup && externalFull {
				continue
			}
			cp := *p
			if m.tryEstablishConnection(&cp) {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func shuffledDTOs(ds []wire.PeerDTO) []wire.PeerDTO {
	out := make([]wire.PeerDTO, len(ds))
	copy(out, ds)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
