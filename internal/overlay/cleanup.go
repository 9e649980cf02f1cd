package overlay

import (
	"time"

	"github.com/floodnet/node/config"
	klog "github.com/floodnet/node/internal/log"
)

// RunCleanupLoop removes peers whose lastSeen exceeds PeerTimeout, on a
// CleanupInterval ticker. Call in a goroutine.
func (m *Manager) RunCleanupLoop() {
	ticker := time.NewTicker(config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanupOnce()
		}
	}
}

func (m *Manager) cleanupOnce() {
	cutoff := time.Now().Add(-config.PeerTimeout)

	m.mu.Lock()
	var stale []string
	for id, p := range m.known {
		if p.LastSeen.Before(cutoff) && !p.LastSeen.IsZero() {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(m.known, id)
		delete(m.active, id)
	}
	m.mu.Unlock()

	if len(stale) > 0 {
		klog.Overlay.Info().Int("count", len(stale)).Msg("stale peers cleaned up")
	}
}
