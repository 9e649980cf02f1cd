// Package wire defines the JSON request/response shapes exchanged between
// floodnode instances and with local clients (the miner). Keeping them in
// one package means the server, the overlay manager, the propagator, and
// the miner all speak the identical wire format.
package wire

import (
	"github.com/floodnet/node/internal/consensus"
	"github.com/floodnet/node/pkg/block"
	"github.com/floodnet/node/pkg/tx"
)

// PeerDTO is a peer as advertised over the wire: GET /peers array
// elements, and the peers[] field of /register and /sync responses.
type PeerDTO struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	NodeID string `json:"nodeId"`
}

// StatusResponse is the payload for GET /status.
type StatusResponse struct {
	NodeID             string         `json:"nodeId"`
	IP                 string         `json:"ip"`
	Port               int            `json:"port"`
	Blocks             int            `json:"blocks"`
	TotalPeers         int            `json:"totalPeers"`
	ActiveConnections  int            `json:"activeConnections"`
	ConnectionsByGroup map[string]int `json:"connectionsByGroup"`
	Connections        []PeerDTO      `json:"connections"`
	AllPeers           []PeerDTO      `json:"allPeers"`
}

// InventoryResponse is the payload for GET /inventory.
type InventoryResponse = consensus.Inventory

// ConsensusResponse is the payload for GET /consensus.
type ConsensusResponse = consensus.Summary

// BalanceResponse is the payload for GET /balance.
type BalanceResponse struct {
	Balances map[string]int64 `json:"balances"`
}

// PingResponse is the payload for GET /ping.
type PingResponse struct {
	Status string `json:"status"`
}

// RegisterRequest is the POST /register body: the caller announcing itself.
type RegisterRequest struct {
	NodeID string `json:"nodeId"`
	IP     string `json:"ip"`
	Port   int    `json:"port"`
}

// RegisterResponse is the POST /register reply: our peers plus our identity
// and inventory, so the new peer can bootstrap in one round trip.
type RegisterResponse struct {
	Status       string            `json:"status"`
	Peers        []PeerDTO         `json:"peers"`
	NodeID       string            `json:"nodeId"`
	IP           string            `json:"ip"`
	Port         int               `json:"port"`
	Blocks       []*block.Block    `json:"blocks"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// InvRequest is the POST /inv body: a client submitting a transaction.
type InvRequest = tx.Transaction

// StatusOnlyResponse covers POST /inv and POST /block replies, both of
// which are just {"status": "added"|"already_exists"}.
type StatusOnlyResponse struct {
	Status string `json:"status"`
}

// BlockRequest is the POST /block body: a candidate block, from the
// miner or a flooding peer.
type BlockRequest = block.Block

// SyncRequest is the POST /sync body. It carries either a peer list, or
// blocks/transactions to merge, or both — whichever the sender has.
type SyncRequest struct {
	Peers        []PeerDTO         `json:"peers,omitempty"`
	Blocks       []*block.Block    `json:"blocks,omitempty"`
	Transactions []*tx.Transaction `json:"transactions,omitempty"`
}

// SyncResponse reports how a /sync POST was applied.
type SyncResponse struct {
	Status          string `json:"status"`
	Added           int    `json:"added"`
	AddedBlocks     int    `json:"addedBlocks"`
	AddedTransactions int  `json:"addedTransactions"`
}
