/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blesschain/blessd/internal/authority"
	"github.com/blesschain/blessd/internal/chainspec"
	"github.com/blesschain/blessd/internal/clock"
	"github.com/blesschain/blessd/internal/config"
	"github.com/blesschain/blessd/internal/db"
	"github.com/blesschain/blessd/internal/eventbus"
	"github.com/blesschain/blessd/internal/events"
	"github.com/blesschain/blessd/internal/leadership"
	"github.com/blesschain/blessd/internal/logging"
	"github.com/blesschain/blessd/internal/pause"
	"github.com/blesschain/blessd/internal/producer"
	"github.com/blesschain/blessd/internal/schedule"
	"github.com/blesschain/blessd/internal/schedule/state"
	"github.com/blesschain/blessd/internal/server"
	"github.com/blesschain/blessd/internal/telemetry"
	"github.com/blesschain/blessd/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "blessd",
	Short: "BlessChain node daemon",
	Long:  "blessd runs a BlessChain proof-of-authority node: it schedules and produces blocks on a fixed interval, honoring the chain's weekly pause windows.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the node",
	Long:  "Start the block production loop and the operator HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

// producerRunner is satisfied by both the plain loop and the
// leader-aware wrapper.
type producerRunner interface {
	Run(ctx context.Context) error
	Status() producer.Status
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("blessd starting")

	spec, err := chainspec.Load(cfg.ChainSpec)
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid chain spec %s: %w", spec.ID, err)
	}
	windows, err := spec.Windows()
	if err != nil {
		return err
	}
	policy, err := pause.NewPolicy(windows)
	if err != nil {
		return fmt.Errorf("invalid pause windows: %w", err)
	}

	interval := cfg.Interval(spec)
	logger.Info().
		Str("chain", spec.ID).
		Dur("block_interval", interval).
		Int("pause_windows", len(windows)).
		Msg("chain spec loaded")

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "blessd",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	if cfg.DBBackend == db.BackendSQLite && cfg.DBDSN == "" {
		if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
			return fmt.Errorf("create storage path: %w", err)
		}
	}
	gdb, err := db.Connect(cfg.DBBackend, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect schedule database: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error().Err(err).Msg("database close failed")
		}
	}()

	store, err := state.NewStore(gdb, logger)
	if err != nil {
		return fmt.Errorf("initialize schedule state store: %w", err)
	}

	clk := clock.System()
	auth := authority.NewDev(spec.ID, spec.GenesisTimestamp, clk, logger)
	engine := schedule.NewEngine(interval, policy, clk, logger)
	bus := events.NewBus()

	loop := producer.New(engine, store, policy, auth, auth, clk, bus, producer.Config{
		AttemptTimeout:   time.Duration(cfg.AttemptTimeoutMillis) * time.Millisecond,
		RetryInitial:     time.Duration(cfg.RetryInitialMillis) * time.Millisecond,
		RetryMaxInterval: time.Duration(cfg.RetryMaxSeconds) * time.Second,
		RetryBudget:      uint64(cfg.RetryBudget),
	}, logger)

	var runner producerRunner = loop
	if cfg.LeaderElectionEnabled {
		election, err := leadership.NewElection(leadership.ElectionConfig{
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			InstanceID:    cfg.InstanceID,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize leader election: %w", err)
		}
		runner = producer.NewLeaderAware(loop, election, bus, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bridge *eventbus.Bridge
	if cfg.NATSEnabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATSURL
		bridge, err = eventbus.NewBridge(busCfg, bus, logger)
		if err != nil {
			return fmt.Errorf("initialize nats bridge: %w", err)
		}
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("nats bridge stopped")
			}
		}()
	}

	srv := server.New(spec.ID, runner, logger)
	httpServer := srv.HTTPServer(cfg.HTTPBind, cfg.HTTPPort)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- runner.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("shutting down gracefully...")
	case err := <-loopErr:
		if err != nil && ctx.Err() == nil {
			// Unknown schedule state; continuing risks duplicate or
			// skipped slots.
			logger.Error().Err(err).Msg("production loop failed")
			cancel()
			shutdownHTTP(httpServer)
			closeBridge(bridge)
			return err
		}
	}

	cancel()
	shutdownHTTP(httpServer)
	closeBridge(bridge)

	logger.Info().Msg("blessd stopped")
	return nil
}

func shutdownHTTP(httpServer *http.Server) {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func closeBridge(bridge *eventbus.Bridge) {
	if bridge == nil {
		return
	}
	if err := bridge.Close(); err != nil {
		logger.Error().Err(err).Msg("nats bridge close failed")
	}
}
