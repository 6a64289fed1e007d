// Package worker implements the worker side of the handshake protocol:
// bind a node, register with the master under a service id, then serve
// closure invocations until told to shut down.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"jobplane/internal/closure"
	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
)

// Run binds a node, performs the handshake against master under
// service, and then serves closure invocations against registry until
// the master sends ShutDown. It returns nil on a clean shutdown, and a
// non-nil error (including *ErrUnexpectedConnected and handshake
// exhaustion) otherwise -- the caller (cmd/jobplane) is responsible for
// translating that into an exit code.
func Run(ctx context.Context, master nodeid.NodeId, service runner.ServiceID, registry *closure.Registry) error {
	transport, err := nodeid.Bind("0.0.0.0", nodeid.DefaultPortRange())
	if err != nil {
		return fmt.Errorf("worker: failed to bind: %w", err)
	}
	defer transport.Listener().Close()

	workerID := uuid.NewString()
	node := nodeid.NewLocalNode(transport)
	slog.Info("worker: bound", "id", workerID, "node", node, "master", master, "service", service)
	slog.Info("worker: environment", "vars", os.Environ())

	if err := handshake(ctx, transport, master, service, workerID); err != nil {
		return err
	}
	slog.Info("worker: registered", "service", service)

	err = Serve(ctx, transport, registry)
	var unexpected *ErrUnexpectedConnected
	switch {
	case err == nil:
		slog.Info("worker: shut down cleanly", "service", service)
	case errors.As(err, &unexpected):
		slog.Error("worker: protocol violation, exiting", "service", service, "error", err)
	default:
		slog.Error("worker: serve loop ended with error", "service", service, "error", err)
	}
	return err
}
