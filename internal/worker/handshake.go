package worker

import (
	"context"
	"fmt"
	"net"
	"time"

	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
	"jobplane/internal/wire"
)

const (
	handshakeAttempts = 5
	handshakeTimeout  = 10 * time.Second
)

// handshake dials master and registers under service, retrying up to
// handshakeAttempts times with a fresh connection each time. It
// returns nil as soon as one attempt completes with a Connected reply.
func handshake(ctx context.Context, transport *nodeid.Transport, master nodeid.NodeId, service runner.ServiceID, workerID string) error {
	var lastErr error
	for attempt := 1; attempt <= handshakeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := tryHandshake(ctx, transport, master, service, workerID); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("worker: handshake failed after %d attempts: %w", handshakeAttempts, lastErr)
}

func tryHandshake(ctx context.Context, transport *nodeid.Transport, master nodeid.NodeId, service runner.ServiceID, workerID string) error {
	conn, err := net.DialTimeout("tcp", master.String(), handshakeTimeout)
	if err != nil {
		return fmt.Errorf("worker: failed to dial master: %w", err)
	}
	defer conn.Close()

	reg := wire.Registration{
		WorkerID:  workerID,
		Service:   string(service),
		ReplyAddr: nodeid.NewLocalNode(transport).String(),
	}
	if err := wire.NewEncoder(conn).Encode(reg); err != nil {
		return fmt.Errorf("worker: failed to send registration: %w", err)
	}

	type decoded struct {
		msg wire.WorkerMessage
		err error
	}
	ch := make(chan decoded, 1)
	go func() {
		var msg wire.WorkerMessage
		err := wire.NewDecoder(conn).Decode(&msg)
		ch <- decoded{msg, err}
	}()

	select {
	case d := <-ch:
		if d.err != nil {
			return fmt.Errorf("worker: failed to read handshake reply: %w", d.err)
		}
		if d.msg.Kind != wire.Connected {
			return fmt.Errorf("worker: expected Connected, got %s", d.msg.Kind)
		}
		return nil
	case <-time.After(handshakeTimeout):
		return fmt.Errorf("worker: timed out waiting for handshake reply")
	case <-ctx.Done():
		return ctx.Err()
	}
}
