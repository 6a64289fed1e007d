package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jobplane/internal/closure"
	"jobplane/internal/config"
	"jobplane/internal/hold"
	"jobplane/internal/launcher"
	"jobplane/internal/logger"
	"jobplane/internal/nodeid"
	"jobplane/internal/observability"
	"jobplane/internal/runner"
	"jobplane/internal/store"
	"jobplane/internal/store/postgres"
	"jobplane/internal/workload"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the master and its cluster computation",
	Long: `master opens the program bookkeeping database, starts the hold
coordinator, provisions a worker through the configured launcher, runs
the bundled cluster computation against it, and records the outcome
before exiting.`,
	RunE: runMaster,
}

func init() {
	masterCmd.Flags().String("log-file", "", "redirect structured logging to this file")
	viper.BindPFlag("master.log-file", masterCmd.Flags().Lookup("log-file"))

	rootCmd.AddCommand(masterCmd)
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadMaster()
	if err != nil {
		return fmt.Errorf("jobplane master: %w", err)
	}

	if v := viper.GetString("master.log-file"); v != "" {
		cfg.LogFile = v
	}

	if cfg.LogFile != "" {
		l, closeLog, err := logger.RedirectToFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("jobplane master: failed to redirect logging: %w", err)
		}
		defer closeLog()
		slog.SetDefault(l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runID := uuid.NewString()
	slog.Info("jobplane master: starting", "run_id", runID, "pid", os.Getpid(), "launcher", cfg.Launcher)

	programStore, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("jobplane master: failed to open program database: %w", err)
	}
	defer programStore.Close()

	if err := programStore.StartRun(ctx, runID, time.Now()); err != nil {
		return fmt.Errorf("jobplane master: failed to record run start: %w", err)
	}

	shutdownTracer, err := observability.Init(ctx, "jobplane-master", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("jobplane master: failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("jobplane master: failed to shut down tracer", "error", err)
		}
	}()

	metricsHandler, runnerMetrics, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("jobplane master: failed to init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("jobplane master: failed to shut down metrics", "error", err)
		}
	}()
	runner.SetMetrics(runnerMetrics)

	holds := hold.NewMap()
	holdRateLimiter := hold.NewRateLimiter(5, 10)
	holdOpts := []hold.Option{hold.WithRateLimiter(holdRateLimiter), hold.WithMetricsHandler(metricsHandler)}
	if cfg.HoldSecret != "" {
		holdOpts = append(holdOpts, hold.WithSharedSecret(cfg.HoldSecret))
	}
	holdServer, err := hold.NewServer(holds, cfg.HoldPortStart, holdOpts...)
	if err != nil {
		return fmt.Errorf("jobplane master: failed to start hold coordinator: %w", err)
	}
	slog.Info("jobplane master: hold coordinator listening", "addr", holdServer.Addr())

	holdServerDone := make(chan error, 1)
	holdCtx, cancelHold := context.WithCancel(ctx)
	defer cancelHold()
	go func() { holdServerDone <- holdServer.Run(holdCtx) }()

	transport, err := nodeid.Bind(cfg.BindHost, config.PortRange())
	if err != nil {
		return fmt.Errorf("jobplane master: failed to bind: %w", err)
	}
	master := runner.NewMaster(transport)
	defer master.Close()
	slog.Info("jobplane master: listening", "node", master.NodeID())

	registry := closure.NewRegistry()
	workload.Register(registry)

	stagedWorker, cleanupStaged, err := stageWorkerExecutable()
	if err != nil {
		return fmt.Errorf("jobplane master: failed to stage worker executable: %w", err)
	}
	defer cleanupStaged()

	lnch, err := buildLauncher(cfg, holds, stagedWorker)
	if err != nil {
		return fmt.Errorf("jobplane master: failed to build launcher %q: %w", cfg.Launcher, err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			slog.Info("jobplane master: signal received, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	computeErr := runClusterComputation(ctx, master, lnch)

	completedAt := time.Now()
	if computeErr != nil {
		errMsg := computeErr.Error()
		slog.Error("jobplane master: cluster computation failed", "error", computeErr)
		if err := programStore.CompleteRun(ctx, runID, completedAt, store.RunStatusFailed, &errMsg); err != nil {
			slog.Warn("jobplane master: failed to record run failure", "error", err)
		}
	} else {
		slog.Info("jobplane master: cluster computation completed")
		if err := programStore.CompleteRun(ctx, runID, completedAt, store.RunStatusSucceeded, nil); err != nil {
			slog.Warn("jobplane master: failed to record run completion", "error", err)
		}
	}

	cancelHold()
	select {
	case <-holdServerDone:
	case <-time.After(5 * time.Second):
		slog.Warn("jobplane master: timed out waiting for hold coordinator to stop")
	}

	slog.Info("jobplane master: done", "run_id", runID)
	return computeErr
}

// runClusterComputation is the bundled program a stock jobplane master
// runs: dispatch the built-in increment closure to one freshly
// provisioned worker. A deployment embedding this framework as a
// library would replace this with its own
// func(ctx, *runner.Master) error; jobplane the binary ships this one
// so `jobplane master` does something observable out of the box.
func runClusterComputation(ctx context.Context, master *runner.Master, lnch runner.Launcher) error {
	return runner.WithRemoteRunProcess(ctx, master, lnch, func(run func(*closure.LazyClosure[int]) (int, error), _ nodeid.NodeId, service runner.ServiceID) error {
		lc := closure.NewLazyClosure(func() (closure.Closure, error) {
			return workload.Increment.Apply(41)
		}, closure.JSONCodec[int]("int"))

		result, err := run(lc)
		if err != nil {
			return err
		}
		slog.Info("jobplane master: cluster computation result", "service", service, "result", result)
		return nil
	})
}

func buildLauncher(cfg *config.MasterConfig, holds *hold.Map, workerCommand string) (runner.Launcher, error) {
	opts := []launcher.Option{launcher.WithHolds(holds), launcher.WithConnectTimeout(30 * time.Second)}

	switch cfg.Launcher {
	case "exec", "":
		return launcher.NewExecLauncher(workerCommand, "", opts...), nil
	case "docker":
		if cfg.WorkerImage == "" {
			return nil, fmt.Errorf("JOBPLANE_WORKER_IMAGE is required for the docker launcher")
		}
		return launcher.NewDockerLauncher(cfg.WorkerImage, opts...)
	case "kubernetes":
		if cfg.WorkerImage == "" {
			return nil, fmt.Errorf("JOBPLANE_WORKER_IMAGE is required for the kubernetes launcher")
		}
		return launcher.NewKubernetesLauncher(launcher.KubernetesConfig{Image: cfg.WorkerImage}, opts...)
	default:
		return nil, fmt.Errorf("unknown launcher %q", cfg.Launcher)
	}
}

// stageWorkerExecutable copies the currently running binary to a
// per-process temp path so the exec launcher has a stable path to
// re-invoke even if the original binary is replaced during a
// deployment while this master is running. JOBPLANE_WORKER_COMMAND_OVERRIDE
// skips staging entirely and is returned as-is, in which case cleanup
// is a no-op -- an operator-supplied command is theirs to manage.
func stageWorkerExecutable() (path string, cleanup func(), err error) {
	if override := os.Getenv("JOBPLANE_WORKER_COMMAND_OVERRIDE"); override != "" {
		return override, func() {}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve current executable: %w", err)
	}

	staged := filepath.Join(os.TempDir(), fmt.Sprintf("jobplane-worker-%d", os.Getpid()))
	data, err := os.ReadFile(self)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read current executable: %w", err)
	}
	if err := os.WriteFile(staged, data, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to stage worker executable: %w", err)
	}

	return staged, func() {
		if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
			slog.Warn("jobplane master: failed to remove staged worker executable", "path", staged, "error", err)
		}
	}, nil
}
