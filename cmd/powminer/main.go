// Command powminer runs the mining client end to end: it loads config,
// derives a signing key, connects to the chain, and drives the
// commit-reveal lifecycle until interrupted. Flag/flag-file parsing
// beyond a config path is out of scope (spec §1 Non-goals); this is a
// minimal process entrypoint, not a CLI.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gxplatform/powminer/internal/audit"
	"github.com/gxplatform/powminer/internal/chainclient"
	"github.com/gxplatform/powminer/internal/config"
	"github.com/gxplatform/powminer/internal/debugapi"
	"github.com/gxplatform/powminer/internal/epoch"
	"github.com/gxplatform/powminer/internal/eventbus"
	"github.com/gxplatform/powminer/internal/keyring"
	"github.com/gxplatform/powminer/internal/logging"
	"github.com/gxplatform/powminer/internal/metrics"
	"github.com/gxplatform/powminer/internal/mining"
	"github.com/gxplatform/powminer/internal/orchestrator"
	"github.com/gxplatform/powminer/internal/statestore"
	"github.com/gxplatform/powminer/internal/txmanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logging.New("main")

func main() {
	if err := run(); err != nil {
		log.Errorw("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keys, err := keyring.FromMnemonic(cfg.Mnemonic)
	if err != nil {
		return err
	}
	minerAddress, err := keys.Bech32Address(cfg.Bech32HRP)
	if err != nil {
		return err
	}
	log.Infow("derived miner address", "address", minerAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trapSignals(cancel)

	chain, err := chainclient.Dial(ctx, cfg.Endpoint, cfg.ContractAddress)
	if err != nil {
		return err
	}
	defer chain.Close()

	memCap, err := cfg.MemoryCapBytes()
	if err != nil {
		return err
	}
	workerCount := mining.DefaultWorkerCount(cfg.WorkerCount, memCap)

	engine := mining.NewEngine(mining.Blake2bSolver{})

	queue := txmanager.NewQueue(1024)
	manager := txmanager.NewManager(
		queue, chain, keys,
		minerAddress, cfg.ChainID, cfg.EthChainID,
		parseAmount(cfg.GasPrice), parseDenom(cfg.GasPrice), cfg.RestEndpoint,
		cfg.MaxRetries, time.Duration(cfg.InitialRetryDelayMs)*time.Millisecond,
	)

	store := statestore.New[orchestrator.PersistedState](cfg.StateFilePath)

	commitLog, err := statestore.OpenCommitmentLog(cfg.CommitmentLogDir)
	if err != nil {
		log.Warnw("commitment log unavailable, continuing without defense-in-depth recovery", "err", err)
		commitLog = nil
	} else {
		defer commitLog.Close()
	}

	bus := optionalEventBus(cfg.RedisAddr)
	if bus != nil {
		defer bus.Close()
	}

	metricsReg := optionalMetrics(cfg.MetricsAddr)
	debugSrv := optionalDebugServer(cfg.DebugHTTPAddr)

	auditLog := optionalAuditLog(cfg.AuditDialect, cfg.AuditDSN)
	if auditLog != nil {
		defer auditLog.Close()
		manager.SetAuditRecorder(auditLog)
	}

	orch := orchestrator.New(minerAddress, workerCount, engine, queue, chain, store, commitLog, bus, metricsReg, debugSrv)

	desc, err := chain.CurrentEpoch(ctx)
	if err != nil {
		return err
	}
	currentEpoch := desc.EpochNumber
	if err := orch.Load(currentEpoch); err != nil {
		return err
	}

	monitor := epoch.NewMonitor(chain, time.Duration(cfg.EpochPollIntervalS)*time.Second)
	transitions := make(chan epoch.Transition, 16)
	go monitor.Run(ctx, transitions)
	go orch.Run(ctx, transitions, time.Duration(cfg.RevealWaitIntervalS)*time.Second)
	go manager.Run(ctx)

	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}

func loadConfig() (config.Config, error) {
	if path := os.Getenv("POWMINER_CONFIG_FILE"); path != "" {
		return config.FromTOML(path)
	}
	return config.FromEnv()
}

func trapSignals(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
}

func parseAmount(gasPrice string) string {
	amount, _ := txmanager.ParseGasPrice(gasPrice)
	return amount
}

func parseDenom(gasPrice string) string {
	_, denom := txmanager.ParseGasPrice(gasPrice)
	return denom
}

func optionalEventBus(addr string) *eventbus.Bus {
	if addr == "" {
		return nil
	}
	return eventbus.New(addr)
}

func optionalMetrics(addr string) *metrics.Registry {
	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	if addr == "" {
		return reg
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warnw("metrics server stopped", "err", err)
		}
	}()
	return reg
}

func optionalDebugServer(addr string) *debugapi.Server {
	srv := debugapi.NewServer(nil)
	if addr == "" {
		return srv
	}
	go func() {
		if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
			log.Warnw("debug server stopped", "err", err)
		}
	}()
	return srv
}

func optionalAuditLog(dialect, dsn string) *audit.Log {
	if dsn == "" {
		return nil
	}
	var a *audit.Log
	var err error
	switch dialect {
	case "mysql":
		a, err = audit.OpenMySQL(dsn)
	default:
		a, err = audit.OpenSQLite(dsn)
	}
	if err != nil {
		log.Warnw("audit log unavailable", "err", err)
		return nil
	}
	return a
}
