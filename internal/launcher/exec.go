package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
)

// ExecLauncher runs the worker as a plain OS subprocess re-invoking the
// current binary with `worker` arguments. It has no external scheduler
// dependency, which makes it the launcher used for local development.
type ExecLauncher struct {
	base

	// Command overrides the executable to run instead of
	// os.Executable(). Set via JOBPLANE_WORKER_COMMAND_OVERRIDE.
	Command string

	// LogDir, if set, redirects each worker's stdout/stderr to a file
	// named after its service id under this directory.
	LogDir string
}

// NewExecLauncher builds an ExecLauncher. command may be empty, in
// which case the currently running executable is relaunched.
func NewExecLauncher(command, logDir string, opts ...Option) *ExecLauncher {
	return &ExecLauncher{base: applyOptions(opts), Command: command, LogDir: logDir}
}

// WithLaunchedWorker starts the subprocess, invokes body while it
// runs, and on body's return either observes it has already exited or
// kills it.
func (e *ExecLauncher) WithLaunchedWorker(ctx context.Context, master nodeid.NodeId, service runner.ServiceID, body func(job any) error) error {
	command := e.Command
	if command == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("launcher: failed to resolve current executable: %w", err)
		}
		command = self
	}

	logFile := ""
	var logHandle *os.File
	if e.LogDir != "" {
		if err := os.MkdirAll(e.LogDir, 0o755); err != nil {
			return fmt.Errorf("launcher: failed to create log dir: %w", err)
		}
		logFile = fmt.Sprintf("%s/%s.log", e.LogDir, service)
		f, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("launcher: failed to create worker log file: %w", err)
		}
		logHandle = f
		defer logHandle.Close()
	}

	cmd := exec.CommandContext(ctx, command, workerArgs(master, service, logFile)...)
	if logHandle != nil {
		cmd.Stdout = logHandle
		cmd.Stderr = logHandle
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: failed to start worker process: %w", err)
	}
	slog.Info("launcher: started worker subprocess", "service", service, "pid", cmd.Process.Pid)

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	bodyErr := body(cmd.Process)

	// The worker should already be exiting on its own after the
	// master's ShutDown message; give it a moment before forcing.
	select {
	case waitErr := <-exited:
		if waitErr != nil {
			slog.Warn("launcher: worker subprocess exited with error", "service", service, "error", waitErr)
		}
	case <-time.After(5 * time.Second):
		slog.Warn("launcher: worker subprocess did not exit after shutdown, killing", "service", service)
		if err := cmd.Process.Kill(); err != nil {
			slog.Warn("launcher: failed to kill worker subprocess", "service", service, "error", err)
		}
		<-exited
	}

	return bodyErr
}
