package runner

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"jobplane/internal/closure"
	"jobplane/internal/logger"
	"jobplane/internal/nodeid"
	"jobplane/internal/observability"
	"jobplane/internal/wire"
)

const requestIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newRequestID generates an 8-character random id for one dispatch
// attempt, mirroring newServiceID's alphabet/length-and-crypto/rand
// shape at a longer length since a dispatch's blast radius (one log
// correlation key) is smaller than a ServiceID's (a live TCP listener).
func newRequestID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = requestIDAlphabet[int(b)%len(requestIDAlphabet)]
	}
	return string(buf), nil
}

// WithRemoteRunProcess layers closure execution onto WithService. body
// receives a run function that forces a LazyClosure, dispatches it to
// the worker as an invocation, and translates the outcome into either a
// value of T or a *RemoteError, per dispatchClosure's translation table below. If
// launcher.Holds() is non-nil, a *RemoteError surfacing from body is
// held (logged, inserted into the hold map, blocked on) and the entire
// call is retried from scratch -- a fresh service id and fresh worker --
// once an operator releases it.
func WithRemoteRunProcess[T any](ctx context.Context, master *Master, launcher Launcher, body func(run func(*closure.LazyClosure[T]) (T, error), worker nodeid.NodeId, service ServiceID) error) error {
	err := WithService(ctx, master, launcher, func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error {
		run := func(lc *closure.LazyClosure[T]) (T, error) {
			return dispatchClosure(ctx, worker, service, lc)
		}
		return body(run, worker, service)
	})

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		if holds := launcher.Holds(); holds != nil {
			log := logger.FromContext(logger.WithServiceID(ctx, string(remoteErr.Service)), slog.Default())
			log.Error("runner: remote error, holding for operator release",
				"kind", remoteErr.Kind, "reason", remoteErr.Reason)
			metrics.RecordHeld(ctx)
			if holdErr := holds.BlockUntilReleased(ctx, string(remoteErr.Service)); holdErr != nil {
				return holdErr
			}
			return WithRemoteRunProcess(ctx, master, launcher, body)
		}
	}
	return err
}

// dispatchClosure forces lc, stamps a fresh request id for this one
// dispatch attempt, submits it to worker as an invocation, and
// translates the outcome:
//
//	Done(Right x)   -> x, nil
//	Done(Left err)  -> RemoteError{Exception}
//	Failed(r)       -> RemoteError{AsyncFailed}
//	LinkFailed(r)   -> RemoteError{AsyncLinkFailed}
//	Cancelled       -> RemoteError{AsyncCancelled}
//	Pending         -> RemoteError{AsyncPending}
func dispatchClosure[T any](ctx context.Context, worker nodeid.NodeId, service ServiceID, lc *closure.LazyClosure[T]) (T, error) {
	var zero T

	c, err := lc.Force()
	if err != nil {
		return zero, err
	}

	requestID, err := newRequestID()
	if err != nil {
		return zero, &RemoteError{Service: service, Kind: AsyncFailed, Reason: err.Error()}
	}
	ctx = logger.WithRequestID(ctx, requestID)

	ctx, span := observability.StartDispatchSpan(ctx, tracer, string(service), worker.String(), c.ID)
	defer span.End()

	log := logger.FromContext(ctx, slog.Default())
	log.Debug("runner: dispatching closure", "closure", c.ID)

	result, err := dispatchClosureInner(ctx, worker, service, c, requestID, lc)
	metrics.RecordDispatch(ctx, err != nil)
	if err != nil {
		span.RecordError(err)
		log.Warn("runner: dispatch failed", "closure", c.ID, "error", err)
	}
	return result, err
}

func dispatchClosureInner[T any](ctx context.Context, worker nodeid.NodeId, service ServiceID, c closure.Closure, requestID string, lc *closure.LazyClosure[T]) (T, error) {
	var zero T

	conn, err := net.DialTimeout("tcp", worker.String(), 10*time.Second)
	if err != nil {
		return zero, &RemoteError{Service: service, Kind: AsyncFailed, Reason: err.Error()}
	}
	defer conn.Close()

	env := wire.Envelope{IsInvoke: true, Invoke: wire.Invoke{ClosureID: c.ID, Arg: c.Arg, RequestID: requestID}}
	if err := wire.NewEncoder(conn).Encode(env); err != nil {
		return zero, &RemoteError{Service: service, Kind: AsyncFailed, Reason: err.Error()}
	}

	type decoded struct {
		result wire.InvokeResult
		err    error
	}
	resultCh := make(chan decoded, 1)
	go func() {
		var result wire.InvokeResult
		err := wire.NewDecoder(conn).Decode(&result)
		resultCh <- decoded{result, err}
	}()

	select {
	case <-ctx.Done():
		return zero, &RemoteError{Service: service, Kind: AsyncCancelled}
	case d := <-resultCh:
		if d.err != nil {
			if errors.Is(d.err, io.EOF) {
				return zero, &RemoteError{Service: service, Kind: AsyncLinkFailed, Reason: d.err.Error()}
			}
			return zero, &RemoteError{Service: service, Kind: AsyncFailed, Reason: d.err.Error()}
		}
		if !d.result.OK {
			return zero, &RemoteError{Service: service, Kind: Exception, Reason: d.result.ErrMsg}
		}
		value, err := lc.ResultCodec.Decode(d.result.Payload)
		if err != nil {
			return zero, &RemoteError{Service: service, Kind: AsyncFailed, Reason: err.Error()}
		}
		return value, nil
	}
}
