package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"

	"github.com/gertjaap/stratum-go/config"
	"github.com/gertjaap/stratum-go/logging"
	stratumnet "github.com/gertjaap/stratum-go/net"
	"github.com/gertjaap/stratum-go/rpc"
	"github.com/gertjaap/stratum-go/stratum"
	"github.com/gertjaap/stratum-go/web"
	"github.com/gertjaap/stratum-go/work"
)

func logStats(ctx context.Context, ss *stratum.StratumServer) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		st := ss.Stats()
		logging.WithFields(logging.Fields{
			"connections": st.Connections,
			"authorized":  st.Authorized,
			"accepted":    st.SharesAccepted,
			"rejected":    st.SharesRejected,
			"job":         st.CurrentJob,
		}).Infof("STATS: %d miners, %d/%d shares accepted at difficulty %g",
			st.Authorized, st.SharesAccepted, st.SharesAccepted+st.SharesRejected, st.Difficulty)
	}
}

func main() {
	if err := config.LoadConfig(); err != nil {
		logging.Fatalf("MAIN: Invalid configuration: %v", err)
	}
	cfg := config.Active

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		logging.Fatalf("MAIN: %v", err)
	}
	logging.SetLogLevel(int(level))
	if cfg.LogFile != "" {
		if err := logging.SetLogFile(cfg.LogFile); err != nil {
			logging.Fatalf("MAIN: Could not open log file %s: %v", cfg.LogFile, err)
		}
	}
	logging.Infof("stratum-go starting up")

	if err := stratumnet.SetNetwork(cfg.Network, cfg.Testnet); err != nil {
		logging.Fatalf("MAIN: %v", err)
	}
	network := stratumnet.ActiveNetwork

	/* ----- Stratum server instance ---------------------------------- */
	stratumSrv := stratum.NewStratumServer(stratum.Options{
		ExtraNonce1Size:   cfg.ExtraNonce1Size,
		ExtraNonce2Size:   cfg.ExtraNonce2Size,
		InitialDifficulty: cfg.InitialDifficulty,
		IdleTimeout:       time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
		MaxLineBytes:      cfg.MaxLineBytes,
		MaxConnections:    cfg.MaxConnections,
	})
	if cfg.RequireAddressWorkers {
		stratumSrv.SetAuthorizer(stratum.AddressAuthorizer(network.ChainParams))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	/* ----- block template source ------------------------------------ */
	if cfg.RPCHost != "" {
		rpcPort := cfg.RPCPort
		if rpcPort == 0 {
			rpcPort = network.RPCPort
		}
		rpcClient := rpc.NewClient(cfg.RPCHost, rpcPort, cfg.RPCUser, cfg.RPCPass)
		workManager, err := work.NewWorkManager(rpcClient, stratumSrv, network.ChainParams, cfg.PayoutAddress,
			cfg.ExtraNonce1Size+cfg.ExtraNonce2Size, time.Duration(cfg.PollIntervalSeconds)*time.Second)
		if err != nil {
			logging.Fatalf("MAIN: Could not set up work manager: %v", err)
		}
		stratumSrv.SetShareValidator(work.NewShareChecker(workManager))
		go workManager.WatchBlockTemplate(ctx)
	} else {
		logging.Warnf("MAIN: No rpcHost configured, miners will not receive jobs")
	}

	/* ----- single listener, multiplexed via cmux --------------------- */
	port := cfg.StratumPort
	if port == 0 {
		port = network.DefaultStratumPort
	}
	addr := fmt.Sprintf(":%d", port)
	baseListener, err := net.Listen("tcp", addr)
	if err != nil {
		logging.Fatalf("MAIN: Unable to listen on %s: %v", addr, err)
	}

	m := cmux.New(baseListener)
	httpL := m.Match(cmux.HTTP1Fast()) // status page
	stratumL := m.Match(cmux.Any())    // everything else is a miner

	httpSrv := &http.Server{Handler: web.NewDashboard(stratumSrv), ReadHeaderTimeout: 10 * time.Second}

	go func() { _ = httpSrv.Serve(httpL) }()
	go func() {
		if err := stratumSrv.Serve(stratumL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			logging.Errorf("MAIN: Stratum server stopped: %v", err)
		}
	}()
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Fatalf("MAIN: cmux error: %v", err)
		}
	}()

	go logStats(ctx, stratumSrv)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	logging.Infof("MAIN: Startup complete. Stratum and status page on %s (%s). Press Ctrl+C to exit.", addr, network.Name)

	<-shutdownChan
	logging.Warnf("MAIN: Shutdown signal received, exiting")
	cancel()
	_ = baseListener.Close()
}
