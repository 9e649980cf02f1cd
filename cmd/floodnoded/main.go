// floodnoded runs one peer-to-peer blockchain node, or drives a single
// mining attempt against an already-running node.
//
// Usage:
//
//	floodnoded <port> [--peer=ip:port] [--peers=a:b,c:d] [--localhost]
//	floodnoded mine --port=<port> --node-id=<id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/floodnet/node/config"
	"github.com/floodnet/node/internal/consensus"
	"github.com/floodnet/node/internal/inventory"
	"github.com/floodnet/node/internal/ipresolve"
	klog "github.com/floodnet/node/internal/log"
	"github.com/floodnet/node/internal/miner"
	"github.com/floodnet/node/internal/netclient"
	"github.com/floodnet/node/internal/overlay"
	"github.com/floodnet/node/internal/propagator"
	"github.com/floodnet/node/internal/server"
	"github.com/floodnet/node/internal/wire"
	"github.com/floodnet/node/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "floodnoded",
		Usage: "a peer-to-peer blockchain node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "peer", Usage: "single bootstrap peer, ip:port"},
			&cli.StringFlag{Name: "peers", Usage: "comma-separated bootstrap peers, a:b,c:d"},
			&cli.BoolFlag{Name: "localhost", Usage: "use 127.0.0.1 instead of resolving the public IP"},
			&cli.StringFlag{Name: "peerfile", Usage: "path to write a periodic JSON snapshot of known peers"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, error"},
			&cli.BoolFlag{Name: "log-json", Usage: "emit structured JSON logs"},
			&cli.StringFlag{Name: "log-file", Usage: "log file path (empty = console only)"},
		},
		Action: runNode,
		Commands: []*cli.Command{
			{
				Name:  "mine",
				Usage: "run one mining attempt against a local node",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Required: true, Usage: "local node's listening port"},
					&cli.StringFlag{Name: "node-id", Required: true, Usage: "nodeId to credit the block to"},
					&cli.IntFlag{Name: "difficulty", Value: config.Difficulty},
					&cli.StringFlag{Name: "previous-hash", Usage: "override the previousHash instead of querying the local chain"},
				},
				Action: runMine,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runNode(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing required positional argument: port", 1)
	}
	port, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid port %q: %v", c.Args().First(), err), 1)
	}

	var bootstrapPeers []string
	if p := c.String("peer"); p != "" {
		bootstrapPeers = append(bootstrapPeers, p)
	}
	if ps := c.String("peers"); ps != "" {
		for _, addr := range strings.Split(ps, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				bootstrapPeers = append(bootstrapPeers, addr)
			}
		}
	}

	cfg := config.Config{
		Port:           port,
		BootstrapPeers: bootstrapPeers,
		Localhost:      c.Bool("localhost"),
		PeerFile:       c.String("peerfile"),
		LogLevel:       c.String("log-level"),
		LogJSON:        c.Bool("log-json"),
		LogFile:        c.String("log-file"),
	}

	if err := klog.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		return cli.Exit(fmt.Sprintf("init logger: %v", err), 1)
	}

	ip, err := resolveIP(cfg)
	if err != nil {
		klog.Logger.Error().Err(err).Msg("could not determine public IP")
		return cli.Exit("fatal: cannot determine public IP (use --localhost)", 1)
	}
	cfg.IP = ip

	nodeID := types.NewNodeID()
	nodeLog := klog.WithNodeID(nodeID)
	nodeLog.Info().Str("ip", cfg.IP).Int("port", cfg.Port).Msg("starting floodnoded")

	store := inventory.New()
	engine := consensus.New(store, config.Difficulty)
	om := overlay.New(nodeID, cfg.IP, cfg.Port)
	prop := propagator.New(om)
	srv := server.New(nodeID, cfg.IP, cfg.Port, engine, om, prop)
	srv.SetPeerFile(cfg.PeerFile)

	if err := srv.Start(cfg.BootstrapPeers); err != nil {
		return cli.Exit(fmt.Sprintf("start server: %v", err), 1)
	}

	if len(cfg.BootstrapPeers) > 0 {
		bootstrap(om, engine, nodeID, cfg)
	}

	nodeLog.Info().Msg("node running, press ctrl-c to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	nodeLog.Info().Msg("shutting down")
	if err := srv.Shutdown(); err != nil {
		nodeLog.Error().Err(err).Msg("shutdown error")
		return cli.Exit("unclean shutdown", 1)
	}
	return nil
}

func resolveIP(cfg config.Config) (string, error) {
	if cfg.Localhost {
		return "127.0.0.1", nil
	}
	return ipresolve.Resolve(context.Background())
}

// bootstrap registers with every configured bootstrap peer, feeding
// their advertised inventory through consensus.
func bootstrap(om *overlay.Manager, engine *consensus.Engine, nodeID string, cfg config.Config) {
	client := netclient.New()
	register := func(ip string, port int) (*wire.RegisterResponse, error) {
		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		defer cancel()
		req := wire.RegisterRequest{NodeID: nodeID, IP: cfg.IP, Port: cfg.Port}
		var resp wire.RegisterResponse
		url := "http://" + types.HostPort(ip, port) + "/register"
		if err := client.PostJSON(ctx, url, req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}
	ingest := func(resp *wire.RegisterResponse) {
		for _, b := range resp.Blocks {
			if _, err := engine.AddBlock(b, nil); err != nil {
				klog.Logger.Debug().Err(err).Str("hash", b.Hash).Msg("bootstrap block rejected")
			}
		}
		for _, t := range resp.Transactions {
			if _, err := engine.AddTransaction(t, nil); err != nil {
				klog.Logger.Debug().Err(err).Str("id", t.ID).Msg("bootstrap transaction rejected")
			}
		}
	}
	om.Bootstrap(cfg.BootstrapPeers, register, ingest)
}

func runMine(c *cli.Context) error {
	if err := klog.Init("info", false, ""); err != nil {
		return cli.Exit(fmt.Sprintf("init logger: %v", err), 1)
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", c.Int("port"))
	m := miner.New(baseURL, c.String("node-id"), c.Int("difficulty"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := m.Mine(ctx, c.String("previous-hash"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("mining failed: %v", err), 1)
	}

	fmt.Printf("mined block %s (attempts=%d, status=%s, included=%v, elapsed=%s)\n",
		result.Block.Hash, result.Attempts, result.Status, result.Included, result.Elapsed)
	return nil
}
