package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"airease-backend/pkg/monitor"
	"airease-backend/pkg/server"

	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Minute
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		noMonitor bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the price monitor",
		Long: `Start the Airease HTTP API.

The price monitor runs on MONITOR_SCHEDULE unless MONITOR_ENABLED=false
or --no-monitor is given.

Examples:
  airease serve
  airease serve --addr :8080 --no-monitor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + cfg.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := server.NewApp(cfg, log)
			defer app.Close()
			app.Store.StartCleanup(cleanupInterval)

			var scheduler *monitor.Scheduler
			if cfg.MonitorEnabled && !noMonitor {
				scheduler, err = app.NewScheduler()
				if err != nil {
					return fmt.Errorf("create scheduler: %w", err)
				}
				scheduler.Start()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           app.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", "addr", addr, "environment", cfg.Environment)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("listen %s: %w", addr, err)
				}
			case <-ctx.Done():
				log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("http shutdown", "error", err)
			}
			if scheduler != nil {
				if err := scheduler.Stop(shutdownCtx); err != nil {
					log.Warn("monitor pass cancelled during shutdown", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "do not schedule price checks")

	return cmd
}
