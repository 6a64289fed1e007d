package runner

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel/trace"

	"jobplane/internal/logger"
	"jobplane/internal/nodeid"
	"jobplane/internal/observability"
	"jobplane/internal/wire"
)

// WithService allocates a ServiceID and registers the master's
// endpoint, asks the launcher to provision a worker, awaits that
// worker's registration, replies Connected, runs body, and on every
// exit path sends ShutDown to the worker (if one was ever obtained)
// and releases the service id registration.
func WithService(ctx context.Context, master *Master, launcher Launcher, body func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error) error {
	ctx, span := tracer.Start(ctx, "runner.WithService", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	return master.registry.withServiceID(func(id ServiceID, ep *Endpoint) error {
		span.SetAttributes(observability.ServiceSpanAttributes(string(id), "")...)
		ctx := logger.WithServiceID(ctx, string(id))
		log := logger.FromContext(ctx, slog.Default())
		workerDone := make(chan struct{})
		launchErr := make(chan error, 1)
		launchCtx, cancelLaunch := context.WithCancel(ctx)
		defer cancelLaunch()

		go func() {
			launchErr <- launcher.WithLaunchedWorker(launchCtx, master.NodeID(), id, func(job any) error {
				// The launcher's contract requires the continuation to
				// run while the worker is up; block here until
				// WithService itself is done with the worker, at which
				// point the launcher is free to observe termination or
				// cancel the job.
				select {
				case <-workerDone:
				case <-launchCtx.Done():
				}
				return nil
			})
		}()

		waitStart := time.Now()
		reg, err := awaitRegistration(ctx, ep, id, launcher)
		metrics.RecordHandshake(ctx, time.Since(waitStart).Seconds())
		if err != nil {
			span.RecordError(err)
			close(workerDone)
			return err
		}

		if err := reg.encoder.Encode(wire.WorkerMessage{Kind: wire.Connected}); err != nil {
			log.Warn("runner: failed to ack worker registration", "error", err)
		}
		reg.conn.Close()

		workerNode, err := nodeid.ParseNodeID(reg.workerNode)
		if err != nil {
			close(workerDone)
			return err
		}

		bodyErr := func() error {
			// deferred so exactly one ShutDown is sent and workerDone is
			// always closed, even if body panics.
			defer func() {
				sendShutDown(ctx, workerNode, id)
				close(workerDone)
			}()
			return body(ctx, workerNode, id)
		}()

		select {
		case err := <-launchErr:
			if err != nil {
				log.Warn("runner: launcher reported an error during teardown", "error", err)
			}
		case <-time.After(5 * time.Second):
			log.Warn("runner: timed out waiting for launcher teardown")
		}

		return bodyErr
	})
}

// awaitRegistration blocks until a registration for id arrives on ep,
// launcher.ConnectTimeout() elapses, or ctx is cancelled. Because
// endpoints are keyed by ServiceID (see Master.handleConn), a
// registration delivered here is guaranteed to already match id --
// stale/mismatched registrations are filtered and logged before
// delivery, so the timeout here is never reset by them.
func awaitRegistration(ctx context.Context, ep *Endpoint, id ServiceID, launcher Launcher) (wireRegistration, error) {
	var timeoutCh <-chan time.Time
	if d, ok := launcher.ConnectTimeout(); ok {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case reg := <-ep.inbox:
		return reg, nil
	case <-timeoutCh:
		return wireRegistration{}, &TimeoutError{Service: id}
	case <-ctx.Done():
		return wireRegistration{}, ctx.Err()
	}
}

// sendShutDown delivers a ShutDown message to worker over a fresh
// connection. Failures are logged, never raised: the RAII-style cleanup
// this runs under must not itself fail the scope it's cleaning up
// after.
func sendShutDown(ctx context.Context, worker nodeid.NodeId, service ServiceID) {
	log := logger.FromContext(logger.WithServiceID(ctx, string(service)), slog.Default())

	conn, err := net.DialTimeout("tcp", worker.String(), 5*time.Second)
	if err != nil {
		log.Warn("runner: failed to dial worker for shutdown", "worker", worker, "error", err)
		return
	}
	defer conn.Close()

	env := wire.Envelope{IsInvoke: false, Control: wire.WorkerMessage{Kind: wire.ShutDown}}
	if err := wire.NewEncoder(conn).Encode(env); err != nil {
		log.Warn("runner: failed to send shutdown to worker", "worker", worker, "error", err)
	}
}
