package overlay

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/types"
)

// Peer is a known or active remote node.
type Peer struct {
	NodeID   string
	IP       string
	Port     int
	Group    string
	LastSeen time.Time
	Retries  int
}

// DTO converts a Peer to its wire representation.
func (p *Peer) DTO() wire.PeerDTO {
	return wire.PeerDTO{IP: p.IP, Port: p.Port, NodeID: p.NodeID}
}

// URL returns the peer's base HTTP URL ("http://ip:port").
func (p *Peer) URL() string {
	return "http://" + p.IP + ":" + strconv.Itoa(p.Port)
}

func dtoToPeer(d wire.PeerDTO, now time.Time) *Peer {
	return &Peer{
		NodeID:   d.NodeID,
		IP:       d.IP,
		Port:     d.Port,
		Group:    types.Group(d.NodeID),
		LastSeen: now,
	}
}

// shuffled returns a randomly-ordered copy of ps.
func shuffled(ps []*Peer) []*Peer {
	out := make([]*Peer, len(ps))
	copy(out, ps)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
