// Package config holds the protocol constants and runtime configuration
// for a floodnode instance.
package config

import "time"

// Protocol constants. These are consensus/overlay parameters; every node
// in the network must agree on them.
const (
	// Difficulty is the minimum number of leading hex zeros a block hash
	// must have to be accepted (outside of genesis).
	Difficulty = 4

	// GenesisEndowment is the number of coins minted to a genesis block's creator.
	GenesisEndowment = 100

	// MaxTxPerBlock bounds how many pending transactions the miner will
	// include in a single candidate block.
	MaxTxPerBlock = 10

	// MaxInternalConnections is the cap on active connections whose group
	// matches the local node's group.
	MaxInternalConnections = 4

	// MaxExternalConnections is the cap on active connections whose group
	// differs from the local node's group.
	MaxExternalConnections = 4

	// MaxPeerRetries is the number of consecutive propagation/exchange
	// failures tolerated before a peer is evicted.
	MaxPeerRetries = 3
)

// Timing constants governing periodic workers and network calls.
const (
	PeerExchangeInterval  = 30 * time.Second
	PeerListInterval      = 45 * time.Second
	CleanupInterval       = 30 * time.Second
	PeerTimeout           = 10 * time.Minute
	RequestTimeout        = 5 * time.Second
	BulkRetryDelay        = 5 * time.Second
	ShutdownGrace         = 2 * time.Second
	PeerSnapshotInterval  = 60 * time.Second
)

// Config holds per-node runtime settings (not consensus rules — these
// can vary between nodes without affecting convergence).
type Config struct {
	// Port is the local HTTP listen port.
	Port int

	// IP is the node's observed/advertised IP address.
	IP string

	// BootstrapPeers is the initial set of "ip:port" addresses to
	// register with on startup.
	BootstrapPeers []string

	// Localhost, when true, skips the public-IP lookup and uses
	// 127.0.0.1 as the node's advertised address.
	Localhost bool

	// PeerFile, when non-empty, is the path to which the known-peer
	// table is periodically snapshotted as JSON. Empty disables snapshotting.
	PeerFile string

	// LogLevel, LogJSON, LogFile control internal/log.Init.
	LogLevel string
	LogJSON  bool
	LogFile  string
}
