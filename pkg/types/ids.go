// Package types holds small value types shared across floodnode packages:
// node and transaction identifiers, groups, and "ip:port" address helpers.
package types

import "strings"

// NewNodeID returns a fresh random node identifier: 16 random bytes,
// hex-encoded as 32 lowercase characters. It is built from a random v4
// UUID with the dashes stripped — the UUID's first byte (which supplies
// the group nibble below) carries no fixed version/variant bits, so
// group assignment stays uniformly random.
func NewNodeID() string {
	return strings.ReplaceAll(newUUID(), "-", "")
}

// NewTxID returns a fresh random, opaque transaction identifier.
func NewTxID() string {
	return strings.ReplaceAll(newUUID(), "-", "")
}

// Group returns the group partition of a node ID: its first hex character.
func Group(nodeID string) string {
	if nodeID == "" {
		return ""
	}
	return strings.ToLower(nodeID[:1])
}
