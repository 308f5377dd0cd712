package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/keel/redisconn"
	"github.com/xraph/keel/worker"
)

var (
	metricsAddr     string
	shutdownTimeout time.Duration
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Runs a worker process that only publishes its heartbeat",
	Long:  `Starts a worker process that fires lifecycle events and publishes its heartbeat to Redis until interrupted. Useful to check connectivity and failover behaviour.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, s, err := newRuntime()
		if err != nil {
			return err
		}
		defer cfg.Close()

		pool, err := cfg.Pool()
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			srv := metricsServer(metricsAddr, pool)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		launcher := worker.NewLauncher(cfg,
			worker.WithHeartbeatInterval(s.HeartbeatInterval),
			worker.WithLauncherLogger(cfg.Logger()),
		)
		if err := launcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker process: %w", err)
		}

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return launcher.Stop(stopCtx)
	},
}

func metricsServer(addr string, pool *redisconn.Pool) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		redisconn.NewCollector(pool),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	heartbeatCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	heartbeatCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 25*time.Second, "how long to wait for a clean stop")
	rootCmd.AddCommand(heartbeatCmd)
}
