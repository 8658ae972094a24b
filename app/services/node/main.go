package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/worker"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		P2P struct {
			Host           string        `conf:"default:0.0.0.0:9180"`
			RequestTimeout time.Duration `conf:"default:5s"`
		}
		State struct {
			MinerName       string   `conf:"default:miner1"`
			GenesisPath     string   `conf:"default:zblock/genesis.json"`
			DBPath          string   `conf:"default:zblock/blocks"`
			StorageKind     string   `conf:"default:disk,help:memory|disk|badger"`
			CacheSize       int      `conf:"default:1024,help:zero disables the block cache"`
			MinerGoroutines int      `conf:"default:4"`
			MiningSteps     uint64   `conf:"default:50000"`
			KnownPeers      []string `conf:"default:0.0.0.0:9180;0.0.0.0:9280"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "UTXO proof of work node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for public keys.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	// The genesis file holds the consensus values. Without one the node runs
	// with the defaults.
	gen, err := genesis.Load(cfg.State.GenesisPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infow("startup", "status", "genesis file not found, using defaults", "path", cfg.State.GenesisPath)
		gen = genesis.Default()
	case err != nil:
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// Mined blocks pay the configured miner. A node without a miner key only
	// validates and relays.
	var minerPK signature.PublicKey
	if cfg.State.MinerName != "" {
		path := filepath.Join(cfg.NameService.Folder, cfg.State.MinerName+nameservice.PrivateKeyExt)
		privateKey, err := signature.LoadPrivateKey(path)
		if err != nil {
			return fmt.Errorf("unable to load private key for node: %w", err)
		}
		minerPK = signature.ToPublicKey(privateKey.PublicKey)
	}

	store, err := storage.Open(cfg.State.StorageKind, cfg.State.DBPath, cfg.State.CacheSize)
	if err != nil {
		return err
	}

	// A peer set is a collection of known nodes in the network so transactions
	// and blocks can be shared.
	peerSet := peer.NewPeerSet()
	for _, host := range cfg.State.KnownPeers {
		if host != cfg.P2P.Host {
			peerSet.Add(peer.New(host))
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// Node metrics are collected on a private registry exposed by the debug
	// service.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerPublicKey:  minerPK,
		Host:            cfg.P2P.Host,
		Storage:         store,
		Genesis:         gen,
		KnownPeers:      peerSet,
		Client:          network.NewClient(cfg.P2P.RequestTimeout),
		MinerGoroutines: cfg.State.MinerGoroutines,
		MiningSteps:     cfg.State.MiningSteps,
		Registerer:      reg,
		EvHandler:       ev,
	})
	if err != nil {
		store.Close()
		return err
	}
	defer st.Shutdown()

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and peer updates. The worker will register
	// itself with the state.
	worker.Run(st, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st, reg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 3)

	// =========================================================================
	// Start P2P Service

	ln, err := net.Listen("tcp", cfg.P2P.Host)
	if err != nil {
		return fmt.Errorf("p2p listen: %w", err)
	}

	p2pCtx, p2pCancel := context.WithCancel(context.Background())
	defer p2pCancel()

	p2pDone := make(chan struct{})
	go func() {
		defer close(p2pDone)
		log.Infow("startup", "status", "p2p listener started", "host", ln.Addr().String())
		if err := network.Serve(p2pCtx, ln, st.HandleMessage, ev); err != nil {
			serverErrors <- fmt.Errorf("p2p: %w", err)
		}
	}()

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	muxCfg := handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		State:      st,
		NS:         ns,
		Evts:       evts,
		Registerer: reg,
	}

	// Construct the mux for the public API calls.
	publicMux, err := handlers.PublicMux(muxCfg)
	if err != nil {
		return err
	}

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux, err := handlers.PrivateMux(muxCfg)
	if err != nil {
		return err
	}

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Stop accepting blocks and transactions from peers.
		log.Infow("shutdown", "status", "shutdown p2p listener")
		p2pCancel()
		<-p2pDone

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
