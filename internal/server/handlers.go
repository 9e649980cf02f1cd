package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"

	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/overlay"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/block"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return false
	}
	if len(body) > maxBodySize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body too large"})
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	active := s.overlay.ActivePeers()
	known := s.overlay.KnownPeers()

	conns := make([]wire.PeerDTO, len(active))
	for i, p := range active {
		conns[i] = p.DTO()
	}
	all := make([]wire.PeerDTO, len(known))
	for i, p := range known {
		all[i] = p.DTO()
	}

	writeJSON(w, http.StatusOK, wire.StatusResponse{
		NodeID:             s.nodeID,
		IP:                 s.ip,
		Port:               s.port,
		Blocks:             s.engine.BlockCount(),
		TotalPeers:         len(known),
		ActiveConnections:  len(active),
		ConnectionsByGroup: s.overlay.ConnectionsByGroup(),
		Connections:        conns,
		AllPeers:           all,
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	active := s.overlay.ActivePeers()
	out := make([]wire.PeerDTO, len(active))
	for i, p := range active {
		out[i] = p.DTO()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetInventory())
}

func (s *Server) handleGetBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if hash := q.Get("hash"); hash != "" {
		b := s.engine.GetBlock(hash)
		if b == nil {
			writeJSON(w, http.StatusNotFound, []*block.Block{})
			return
		}
		writeJSON(w, http.StatusOK, []*block.Block{b})
		return
	}

	if q.Get("mainchain") == "true" {
		writeJSON(w, http.StatusOK, s.engine.GetMainChain())
		return
	}

	writeJSON(w, http.StatusOK, s.engine.AllBlocks())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.BalanceResponse{Balances: s.engine.Balances()})
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	var resp wire.ConsensusResponse = s.engine.ConsensusSummary()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.PingResponse{Status: "alive"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.NodeID == "" || req.Port <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nodeId and port are required"})
		return
	}
	ip := req.IP
	if ip == "" {
		ip = remoteIP(r)
	}

	s.overlay.LearnPeer(&overlay.Peer{NodeID: req.NodeID, IP: ip, Port: req.Port})

	known := s.overlay.KnownPeers()
	dtos := make([]wire.PeerDTO, 0, len(known))
	for _, p := range known {
		if p.NodeID != req.NodeID {
			dtos = append(dtos, p.DTO())
		}
	}
	dtos = append(dtos, s.overlay.SelfDTO())

	inv := s.engine.GetInventory()
	blocks := s.engine.AllBlocks()

	writeJSON(w, http.StatusOK, wire.RegisterResponse{
		Status:       "registered",
		Peers:        dtos,
		NodeID:       s.nodeID,
		IP:           s.ip,
		Port:         s.port,
		Blocks:       blocks,
		Transactions: inv.Transactions,
	})
}

func (s *Server) handleInv(w http.ResponseWriter, r *http.Request) {
	var t wire.InvRequest
	if !readJSON(w, r, &t) {
		return
	}

	status, err := s.engine.AddTransaction(&t, s.propagator.Transaction)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, wire.StatusOnlyResponse{Status: status})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var b wire.BlockRequest
	if !readJSON(w, r, &b) {
		return
	}

	status, err := s.engine.AddBlock(&b, s.propagator.Block)
	if err != nil {
		klog.Server.Warn().Err(err).Str("hash", b.Hash).Msg("block rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, wire.StatusOnlyResponse{Status: status})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req wire.SyncRequest
	if !readJSON(w, r, &req) {
		return
	}

	for _, d := range req.Peers {
		s.overlay.LearnPeer(&overlay.Peer{NodeID: d.NodeID, IP: d.IP, Port: d.Port})
	}

	addedBlocks := 0
	for _, b := range req.Blocks {
		if status, err := s.engine.AddBlock(b, s.propagator.Block); err == nil && status == "added" {
			addedBlocks++
		}
	}

	addedTx := 0
	for _, t := range req.Transactions {
		if status, err := s.engine.AddTransaction(t, s.propagator.Transaction); err == nil && status == "added" {
			addedTx++
		}
	}

	writeJSON(w, http.StatusOK, wire.SyncResponse{
		Status:            "synced",
		Added:             len(req.Peers),
		AddedBlocks:       addedBlocks,
		AddedTransactions: addedTx,
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
