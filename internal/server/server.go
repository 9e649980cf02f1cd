// Package server is the NodeServer: a thin HTTP dispatcher over the
// consensus engine, overlay manager, and propagator. Its only
// non-trivial startup behavior is creating genesis when the node has
// no bootstrap peers and no existing blocks.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/floodnet/node/config"
	"github.com/floodnet/node/internal/consensus"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/overlay"
	"github.com/floodnet/node/internal/propagator"
	"github.com/floodnet/node/pkg/types"
)

// Server dispatches the node's HTTP endpoints and owns the
// local node's identity and periodic timers.
type Server struct {
	nodeID string
	ip     string
	port   int

	engine     *consensus.Engine
	overlay    *overlay.Manager
	propagator *propagator.Propagator

	httpServer   *http.Server
	ln           net.Listener
	peerFilePath string

	stop chan struct{}
}

// New wires a Server over the given subsystems. nodeID/ip/port are the
// local node's identity.
func New(nodeID, ip string, port int, engine *consensus.Engine, om *overlay.Manager, prop *propagator.Propagator) *Server {
	s := &Server{
		nodeID:     nodeID,
		ip:         ip,
		port:       port,
		engine:     engine,
		overlay:    om,
		propagator: prop,
		stop:       make(chan struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	router.HandleFunc("/inventory", s.handleInventory).Methods(http.MethodGet)
	router.HandleFunc("/getblocks", s.handleGetBlocks).Methods(http.MethodGet)
	router.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	router.HandleFunc("/consensus", s.handleConsensus).Methods(http.MethodGet)
	router.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/inv", s.handleInv).Methods(http.MethodPost)
	router.HandleFunc("/block", s.handleBlock).Methods(http.MethodPost)
	router.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	s.httpServer = &http.Server{
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start binds the listener, creates genesis if this node is starting
// cold with no bootstrap peers, and begins serving in the background.
func (s *Server) Start(bootstrapPeers []string) error {
	addr := types.HostPort("", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.ln = ln

	if len(bootstrapPeers) == 0 && s.engine.BlockCount() == 0 {
		genesis, err := consensus.CreateGenesis(s.nodeID)
		if err != nil {
			return fmt.Errorf("create genesis: %w", err)
		}
		if _, err := s.engine.AddBlock(genesis, nil); err != nil {
			return fmt.Errorf("install genesis: %w", err)
		}
		klog.Server.Info().Str("hash", genesis.Hash).Msg("genesis block created")
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			klog.Server.Error().Err(err).Msg("server error")
		}
	}()

	go s.overlay.RunExchangeLoop()
	go s.overlay.RunCleanupLoop()
	go s.overlay.RunSnapshotLoop(s.peerFilePath)
	go s.propagator.RunPeerListLoop(s.stop)

	return nil
}

// SetPeerFile configures the known-peer snapshot path used by Start.
func (s *Server) SetPeerFile(path string) {
	s.peerFilePath = path
}

// Shutdown stops background workers and drains in-flight requests with
// a bounded grace period before forced termination.
func (s *Server) Shutdown() error {
	close(s.stop)
	s.overlay.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return types.HostPort(s.ip, s.port)
}

// BaseURL returns this node's own base HTTP URL, for the miner's local API calls.
func (s *Server) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}
