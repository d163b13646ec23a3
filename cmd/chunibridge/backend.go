package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chunibridge/chunibridge/backendtest"
	"github.com/chunibridge/chunibridge/bridge"
	"github.com/chunibridge/chunibridge/internal/telemetry"
	"github.com/chunibridge/chunibridge/logger"
)

func backendCmd(flags *rootFlags) *cobra.Command {
	var (
		debugAddr    string
		coinInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run a protocol-complete proxy backend simulator",
		Long: `Run a chuniio proxy backend simulator on the configured Unix socket.

The simulator answers every request variant from mutable in-memory state
and records the LED frames it receives. With --debug-addr it also serves
a debug HTTP endpoint exposing /metrics (Prometheus), /healthz and
/statez. With --coin-interval it inserts a simulated coin periodically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath := flags.socketPath
			if socketPath == "" {
				socketPath = os.Getenv(bridge.SocketPathEnv)
			}
			if socketPath == "" {
				socketPath = bridge.DefaultSocketPath
			}

			return runBackend(socketPath, debugAddr, coinInterval)
		},
	}

	cmd.Flags().StringVarP(&debugAddr, "debug-addr", "d", "",
		"listen address of the debug HTTP endpoint (disabled when empty)")
	cmd.Flags().DurationVar(&coinInterval, "coin-interval", 0,
		"insert a simulated coin at this interval (disabled when zero)")

	return cmd
}

func runBackend(socketPath, debugAddr string, coinInterval time.Duration) error {
	log := logger.GetLogger().With("component", "backend")

	srv, err := backendtest.Listen(socketPath, log)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer srv.Close()

	log.Info("backend simulator listening", "path", socketPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if coinInterval > 0 {
		go coinScript(ctx, srv, coinInterval, log)
	}

	var debugSrv *http.Server
	if debugAddr != "" {
		debugSrv, err = startDebugEndpoint(srv, debugAddr, log)
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	log.Info("shutting down")

	if debugSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = debugSrv.Shutdown(shutdownCtx)
	}

	return srv.Close()
}

// coinScript inserts a simulated coin every interval until ctx is canceled.
func coinScript(ctx context.Context, srv *backendtest.Server, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := srv.InsertCoin()
			log.Debug("coin inserted", "count", count)
		}
	}
}

func startDebugEndpoint(srv *backendtest.Server, addr string, log logger.Logger) (*http.Server, error) {
	reg := telemetry.NewRegistry()
	err := telemetry.RegisterSimulator(reg, func() telemetry.SimulatorStats {
		snap := srv.Snapshot()
		return telemetry.SimulatorStats{
			CoinCount: snap.CoinCount,
			LEDFrames: snap.LEDFrames,
			Conns:     snap.Conns,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register simulator metrics: %w", err)
	}

	router := telemetry.NewRouter(reg, func() any { return srv.Snapshot() })
	debugSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("debug endpoint listening", "addr", addr)
		if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("debug endpoint failed", "error", err)
		}
	}()

	return debugSrv, nil
}
