// Command ptnet-mgrd is the management daemon (spec §6): it opens one TCP
// session to the ptlink gateway, maintains the node store, and runs the
// periodic scanner, persistor, and firmware-update orchestrator for as long
// as the process lives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elrafoon/ptnet-mgr/internal/adminserver"
	"github.com/elrafoon/ptnet-mgr/internal/config"
	"github.com/elrafoon/ptnet-mgr/internal/firmware"
	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/process"
	"github.com/elrafoon/ptnet-mgr/internal/reconcile"
	"github.com/elrafoon/ptnet-mgr/internal/store"
	"github.com/elrafoon/ptnet-mgr/internal/supervisor"
	"github.com/elrafoon/ptnet-mgr/internal/telemetry"
)

var (
	version = "dev"

	serverAddressFlag string
	storePathFlag     string
	logLevelFlag      string
	firmwareDirFlag   string
	adminAddressFlag  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ptnet-mgrd [config.json]",
		Short:   "ptnet-mgr management daemon",
		Args:    cobra.MaximumNArgs(1),
		Version: version,
		RunE:    run,
	}
	cmd.Flags().StringVar(&serverAddressFlag, "server-address", "", "override server_address")
	cmd.Flags().StringVar(&storePathFlag, "store-path", "", "override store_path")
	cmd.Flags().StringVar(&logLevelFlag, "log-level", "", "override logging.level")
	cmd.Flags().StringVar(&firmwareDirFlag, "firmware-dir", "", "directory of firmware images (optional)")
	cmd.Flags().StringVar(&adminAddressFlag, "admin-address", "127.0.0.1:9090", "address for the /health and /metrics mux")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	configPath := "ptnet-mgr.json"
	if len(args) == 1 {
		configPath = args[0]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("ptnet-mgrd: load config: %w", err)
	}
	applyFlagOverrides(cfg)

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("ptnet-mgrd: init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("ptnet-mgrd: init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("ptnet-mgrd: telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(cfg.Telemetry.Profiling)
	if err != nil {
		return fmt.Errorf("ptnet-mgrd: init profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("ptnet-mgrd: profiling shutdown error", "error", err)
		}
	}()

	st, err := store.Open(badgerdb.DefaultOptions(cfg.StorePath))
	if err != nil {
		return fmt.Errorf("ptnet-mgrd: open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("ptnet-mgrd: store close error", "error", err)
		}
	}()

	if err := reconcileNodeModel(ctx, cfg, st); err != nil {
		return fmt.Errorf("ptnet-mgrd: reconcile node model: %w", err)
	}

	var firmwareIndex *firmware.Index
	if firmwareDirFlag != "" {
		firmwareIndex, err = firmware.LoadIndex(firmwareDirFlag)
		if err != nil {
			return fmt.Errorf("ptnet-mgrd: load firmware index: %w", err)
		}
		defer func() { _ = firmwareIndex.Close() }()
	}

	registry := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(registry)
	}

	sup := supervisor.New(supervisor.Config{
		ServerAddress: cfg.ServerAddress,
		TReconnect:    time.Duration(cfg.TReconnect) * time.Second,
		NodeScan:      process.DefaultNodeScanConfig(),
	}, st, firmwareIndex, m)

	admin := adminserver.New(adminAddress(cfg), st, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return admin.Run(gctx) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("ptnet-mgrd: signal received, shutting down", "signal", sig)
			cancel()
		case <-gctx.Done():
		}
	}()

	logger.Info("ptnet-mgrd: running", "server_address", cfg.ServerAddress, "store_path", cfg.StorePath)
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if serverAddressFlag != "" {
		cfg.ServerAddress = serverAddressFlag
	}
	if storePathFlag != "" {
		cfg.StorePath = storePathFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
}

func adminAddress(cfg *config.Config) string {
	if cfg.Metrics.Address != "" {
		return cfg.Metrics.Address
	}
	return adminAddressFlag
}

func reconcileNodeModel(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if cfg.NodeModelSource.Kind != config.NodeModelSourceSOL {
		return nil
	}
	addrs, err := reconcile.LoadAddresses(cfg.NodeModelSource.Dir)
	if err != nil {
		return err
	}
	return reconcile.Run(ctx, st, addrs)
}
