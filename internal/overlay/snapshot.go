package overlay

import (
	"encoding/json"
	"os"
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
)

// snapshotRecord is one entry of the known-peer snapshot file: a flat,
// operator-readable JSON array, not a chain-state persistence mechanism.
type snapshotRecord struct {
	NodeID   string `json:"nodeId"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	LastSeen int64  `json:"lastSeen"`
}

// RunSnapshotLoop writes the known-peer table to path every
// PeerSnapshotInterval, best-effort. A zero path disables the loop
// entirely. Call in a goroutine.
func (m *Manager) RunSnapshotLoop(path string) {
	if path == "" {
		return
	}
	ticker := time.NewTicker(config.PeerSnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.writeSnapshot(path); err != nil {
				klog.Overlay.Warn().Err(err).Str("path", path).Msg("peer snapshot write failed")
			}
		}
	}
}

func (m *Manager) writeSnapshot(path string) error {
	peers := m.KnownPeers()
	records := make([]snapshotRecord, 0, len(peers))
	for _, p := range peers {
		records = append(records, snapshotRecord{
			NodeID:   p.NodeID,
			IP:       p.IP,
			Port:     p.Port,
			LastSeen: p.LastSeen.Unix(),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
