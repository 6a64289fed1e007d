package worker

import (
	"context"
	"log/slog"
	"net"

	"jobplane/internal/closure"
	"jobplane/internal/logger"
	"jobplane/internal/nodeid"
	"jobplane/internal/wire"
)

// Serve accepts connections on transport until it reads a ShutDown
// control message, at which point it returns nil, or a second
// Connected, at which point it returns *ErrUnexpectedConnected.
// Concurrently with waiting on its control mailbox, every accepted
// Invoke envelope is dispatched to registry and answered on its own
// connection -- one accept loop serves both purposes, since the
// worker owns exactly one bound transport.
func Serve(ctx context.Context, transport *nodeid.Transport, registry *closure.Registry) error {
	for {
		conn, err := transport.Listener().Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}

		var env wire.Envelope
		if err := wire.NewDecoder(conn).Decode(&env); err != nil {
			slog.Warn("worker: failed to decode envelope", "error", err)
			conn.Close()
			continue
		}

		if env.IsInvoke {
			go handleInvoke(ctx, conn, registry, env.Invoke)
			continue
		}

		conn.Close()
		switch env.Control.Kind {
		case wire.ShutDown:
			return nil
		case wire.Connected:
			return &ErrUnexpectedConnected{}
		default:
			slog.Warn("worker: unrecognised control message", "kind", env.Control.Kind)
		}
	}
}

func handleInvoke(ctx context.Context, conn net.Conn, registry *closure.Registry, inv wire.Invoke) {
	defer conn.Close()

	ctx = logger.WithRequestID(ctx, inv.RequestID)
	log := logger.FromContext(ctx, slog.Default())

	payload, errMsg, err := registry.Invoke(ctx, inv.ClosureID, inv.Arg)
	result := wire.InvokeResult{OK: true, Payload: payload}
	switch {
	case err != nil:
		result.OK = false
		result.ErrMsg = err.Error()
	case errMsg != "":
		result.OK = false
		result.ErrMsg = errMsg
	}

	if err := wire.NewEncoder(conn).Encode(result); err != nil {
		log.Warn("worker: failed to send invoke result", "closure", inv.ClosureID, "error", err)
	}
}
