package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jobplane/internal/closure"
	"jobplane/internal/config"
	"jobplane/internal/logger"
	"jobplane/internal/nodeid"
	"jobplane/internal/observability"
	"jobplane/internal/runner"
	"jobplane/internal/worker"
	"jobplane/internal/workload"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Register with a master and execute closures until shutdown",
	Long: `worker dials the master address given by --master (or
JOBPLANE_MASTER_ADDR), performs the handshake protocol under
--service (JOBPLANE_SERVICE_ID), and then serves closure invocations
until the master sends a shutdown message.

This subcommand is normally invoked by a launcher on the worker's
behalf, not typed by an operator.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().String("master", "", "master node address (host:port)")
	workerCmd.Flags().String("service", "", "service id to register under")
	workerCmd.Flags().String("log-file", "", "redirect structured logging to this file")
	viper.BindPFlag("worker.master", workerCmd.Flags().Lookup("master"))
	viper.BindPFlag("worker.service", workerCmd.Flags().Lookup("service"))
	viper.BindPFlag("worker.log-file", workerCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("jobplane worker: %w", err)
	}

	// Flags win when both the flag and the environment variable are
	// set, per internal/config.LoadWorker's documented precedence.
	if v := viper.GetString("worker.master"); v != "" {
		cfg.MasterAddr = v
	}
	if v := viper.GetString("worker.service"); v != "" {
		cfg.Service = v
	}
	if v := viper.GetString("worker.log-file"); v != "" {
		cfg.LogFile = v
	}

	if cfg.MasterAddr == "" || cfg.Service == "" {
		return fmt.Errorf("jobplane worker: --master and --service (or JOBPLANE_MASTER_ADDR / JOBPLANE_SERVICE_ID) are required")
	}

	if cfg.LogFile != "" {
		l, closeLog, err := logger.RedirectToFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("jobplane worker: failed to redirect logging: %w", err)
		}
		defer closeLog()
		slog.SetDefault(l)
	}

	master, err := nodeid.ParseNodeID(cfg.MasterAddr)
	if err != nil {
		return fmt.Errorf("jobplane worker: invalid master address: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := observability.Init(ctx, "jobplane-worker", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("jobplane worker: failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("jobplane worker: failed to shut down tracer", "error", err)
		}
	}()

	metricsHandler, _, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("jobplane worker: failed to init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("jobplane worker: failed to shut down metrics", "error", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}
	go func() {
		slog.Info("jobplane worker: metrics listening", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("jobplane worker: metrics server error", "error", err)
		}
	}()
	defer metricsServer.Close()

	registry := closure.NewRegistry()
	workload.Register(registry)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("jobplane worker: signal received, cancelling")
		cancel()
	}()

	slog.Info("jobplane worker: starting", "master", master, "service", cfg.Service)
	return worker.Run(ctx, master, runner.ServiceID(cfg.Service), registry)
}
