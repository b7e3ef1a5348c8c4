package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/control"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/orchestrator"
	"github.com/noctum/noctum/store"
)

func newRunCmd(configPath *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runDaemon(ctx, *configPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9100", "Bind address for the Prometheus /metrics endpoint")
	return cmd
}

func runDaemon(ctx context.Context, configPath, metricsAddr string) error {
	cfg, err := config.LoadProcessConfig(configPath)
	if err != nil {
		return fmt.Errorf("load process config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	st, err := store.Open(cfg.DataDir, "noctum")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	daemon, handle := orchestrator.New(cfg, st, logger)

	ctrlServer := control.NewServer(handle, logger)
	if err := ctrlServer.Listen(cfg.SocketPath); err != nil {
		return fmt.Errorf("listen on control socket %s: %w", cfg.SocketPath, err)
	}
	defer ctrlServer.Close()
	go func() {
		if err := ctrlServer.Serve(); err != nil {
			logger.Error("control server stopped", "error", err)
		}
	}()

	metricsSrv := startMetricsServer(metricsAddr, logger)
	defer metricsSrv.Close()

	done := make(chan struct{})
	go func() {
		daemon.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping daemon")
	handle.Stop()
	<-done
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	return srv
}
