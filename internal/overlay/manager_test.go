package overlay

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/floodnet/node/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfID and otherInternalID share a first hex character so they fall in
// the same group; otherExternalID's first character differs.
const (
	selfID          = "aaaa1111"
	otherInternalID = "aaaa2222"
	otherExternalID = "bbbb3333"
)

func TestNew_ComputesSelfGroup(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	assert.Equal(t, "a", m.selfGroup)
}

func TestLearnPeer_IgnoresSelfAndNil(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	m.LearnPeer(nil)
	m.LearnPeer(&Peer{NodeID: selfID, IP: "1.2.3.4", Port: 1})
	assert.Empty(t, m.KnownPeers())
}

func TestLearnPeer_AssignsGroupAndRefreshesExisting(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	m.LearnPeer(&Peer{NodeID: otherExternalID, IP: "1.1.1.1", Port: 100})

	known := m.KnownPeers()
	require.Len(t, known, 1)
	assert.Equal(t, "b", known[0].Group)
	assert.Equal(t, "1.1.1.1", known[0].IP)

	// Re-learning the same node ID refreshes IP/port in place rather than
	// duplicating the entry.
	m.LearnPeer(&Peer{NodeID: otherExternalID, IP: "2.2.2.2", Port: 200})
	known = m.KnownPeers()
	require.Len(t, known, 1)
	assert.Equal(t, "2.2.2.2", known[0].IP)
	assert.Equal(t, 200, known[0].Port)
}

func TestConnectionsByGroup_CountsByGroupCharacter(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	m.active[otherInternalID] = &Peer{NodeID: otherInternalID, Group: "a"}
	m.active[otherExternalID] = &Peer{NodeID: otherExternalID, Group: "b"}

	counts := m.ConnectionsByGroup()
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])
}

func TestCapAvailableLocked_RespectsInternalAndExternalCaps(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)

	for i := 0; i < config.MaxInternalConnections; i++ {
		id := "aaaa" + strconv.Itoa(1000+i)
		m.active[id] = &Peer{NodeID: id, Group: "a"}
	}
	assert.False(t, m.capAvailableLocked("a"))
	assert.True(t, m.capAvailableLocked("b"))

	for i := 0; i < config.MaxExternalConnections; i++ {
		id := "bbbb" + strconv.Itoa(1000+i)
		m.active[id] = &Peer{NodeID: id, Group: "b"}
	}
	assert.False(t, m.capAvailableLocked("b"))
}

func TestEvict_RemovesFromActiveSet(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	m.LearnPeer(&Peer{NodeID: otherExternalID, IP: "1.1.1.1", Port: 100})
	m.active[otherExternalID] = &Peer{NodeID: otherExternalID, Group: "b"}

	m.Evict(otherExternalID)

	assert.Empty(t, m.ActivePeers())
}

func TestRecordSuccessAndFailure(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	m.active[otherExternalID] = &Peer{NodeID: otherExternalID, Group: "b", Retries: 2}

	m.RecordSuccess(otherExternalID)
	active := m.ActivePeers()
	require.Len(t, active, 1)
	assert.Equal(t, 0, active[0].Retries)

	n := m.RecordFailure(otherExternalID)
	assert.Equal(t, 1, n)
	n = m.RecordFailure(otherExternalID)
	assert.Equal(t, 2, n)
}

func TestRecordFailure_UnknownPeerSignalsStopRetrying(t *testing.T) {
	m := New(selfID, "127.0.0.1", 9000)
	n := m.RecordFailure("never-connected")
	assert.Greater(t, n, config.MaxPeerRetries)
}

func TestSelfDTO(t *testing.T) {
	m := New(selfID, "10.0.0.1", 8080)
	dto := m.SelfDTO()
	assert.Equal(t, selfID, dto.NodeID)
	assert.Equal(t, "10.0.0.1", dto.IP)
	assert.Equal(t, 8080, dto.Port)
}

func TestTryEstablishConnection_SucceedsAndFillsActiveTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"alive"}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	m := New(selfID, "127.0.0.1", 9000)
	p := &Peer{NodeID: otherExternalID, IP: "127.0.0.1", Port: port, Group: "b"}

	ok := m.tryEstablishConnection(p)
	require.True(t, ok)

	active := m.ActivePeers()
	require.Len(t, active, 1)
	assert.Equal(t, otherExternalID, active[0].NodeID)
}

func TestTryEstablishConnection_FailsWhenCapFull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"alive"}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	m := New(selfID, "127.0.0.1", 9000)
	for i := 0; i < config.MaxExternalConnections; i++ {
		id := "bbbb" + strconv.Itoa(1000+i)
		m.active[id] = &Peer{NodeID: id, Group: "b"}
	}

	p := &Peer{NodeID: otherExternalID, IP: "127.0.0.1", Port: port, Group: "b"}
	ok := m.tryEstablishConnection(p)
	assert.False(t, ok)
	assert.Len(t, m.ActivePeers(), config.MaxExternalConnections)
}

func TestTryEstablishConnection_FailsWhenPingUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	m := New(selfID, "127.0.0.1", 9000)
	p := &Peer{NodeID: otherExternalID, IP: "127.0.0.1", Port: port, Group: "b"}

	ok := m.tryEstablishConnection(p)
	assert.False(t, ok)
	assert.Empty(t, m.ActivePeers())
}
