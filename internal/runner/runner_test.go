package runner

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"jobplane/internal/closure"
	"jobplane/internal/hold"
	"jobplane/internal/nodeid"
	"jobplane/internal/wire"
)

// fakeLauncher lets tests script exactly what "provisioning a worker"
// does, without a real batch scheduler.
type fakeLauncher struct {
	launch         func(ctx context.Context, master nodeid.NodeId, service ServiceID, body func(job any) error) error
	connectTimeout time.Duration
	hasTimeout     bool
	holds          *hold.Map
}

func (f *fakeLauncher) WithLaunchedWorker(ctx context.Context, master nodeid.NodeId, service ServiceID, body func(job any) error) error {
	return f.launch(ctx, master, service, body)
}

func (f *fakeLauncher) ConnectTimeout() (time.Duration, bool) { return f.connectTimeout, f.hasTimeout }
func (f *fakeLauncher) Holds() *hold.Map                      { return f.holds }

// neverConnects is a launcher whose worker never dials home.
func neverConnects() *fakeLauncher {
	return &fakeLauncher{
		launch: func(ctx context.Context, master nodeid.NodeId, service ServiceID, body func(job any) error) error {
			return body(nil)
		},
	}
}

// fakeWorker binds its own node, registers with master under service,
// and optionally answers one invocation.
type fakeWorker struct {
	transport *nodeid.Transport
}

func startFakeWorker(t *testing.T, masterAddr nodeid.NodeId, service ServiceID, onInvoke func(wire.Invoke) wire.InvokeResult) *fakeWorker {
	t.Helper()
	transport, err := nodeid.Bind("127.0.0.1", []int{0})
	if err != nil {
		t.Fatalf("failed to bind fake worker: %v", err)
	}
	w := &fakeWorker{transport: transport}

	go func() {
		conn, err := net.Dial("tcp", masterAddr.String())
		if err != nil {
			return
		}
		enc := wire.NewEncoder(conn)
		dec := wire.NewDecoder(conn)
		enc.Encode(wire.Registration{
			WorkerID:  "fake-worker",
			Service:   string(service),
			ReplyAddr: nodeid.NewLocalNode(transport).String(),
		})
		var ack wire.WorkerMessage
		dec.Decode(&ack)
		conn.Close()

		if onInvoke != nil {
			go w.serveOne(onInvoke)
		}
	}()

	return w
}

func (w *fakeWorker) serveOne(onInvoke func(wire.Invoke) wire.InvokeResult) {
	conn, err := w.transport.Listener().Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	var env wire.Envelope
	if err := wire.NewDecoder(conn).Decode(&env); err != nil || !env.IsInvoke {
		return
	}
	result := onInvoke(env.Invoke)
	wire.NewEncoder(conn).Encode(result)
}

func newTestMaster(t *testing.T) *Master {
	t.Helper()
	transport, err := nodeid.Bind("127.0.0.1", []int{0})
	if err != nil {
		t.Fatalf("failed to bind master: %v", err)
	}
	m := NewMaster(transport)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestWithServiceHappyPath(t *testing.T) {
	master := newTestMaster(t)

	launcher := &fakeLauncher{
		launch: func(ctx context.Context, masterNode nodeid.NodeId, service ServiceID, body func(job any) error) error {
			startFakeWorker(t, masterNode, service, nil)
			return body(nil)
		},
	}

	bodyCalled := false
	err := WithService(context.Background(), master, launcher, func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error {
		bodyCalled = true
		if worker == "" {
			t.Fatal("worker node id is empty")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithService returned error: %v", err)
	}
	if !bodyCalled {
		t.Fatal("body was never invoked")
	}
}

func TestWithServiceConnectionTimeout(t *testing.T) {
	master := newTestMaster(t)
	launcher := neverConnects()
	launcher.hasTimeout = true
	launcher.connectTimeout = 200 * time.Millisecond

	start := time.Now()
	err := WithService(context.Background(), master, launcher, func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error {
		t.Fatal("body should not run without a registered worker")
		return nil
	})
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if elapsed > time.Second {
		t.Fatalf("took %v to time out, want close to 200ms", elapsed)
	}
}

func TestWithServiceStaleWorkerFiltered(t *testing.T) {
	master := newTestMaster(t)

	launcher := &fakeLauncher{
		hasTimeout:     true,
		connectTimeout: 2 * time.Second,
		launch: func(ctx context.Context, masterNode nodeid.NodeId, service ServiceID, body func(job any) error) error {
			// Inject a spurious registration under an unrelated service id.
			go func() {
				conn, err := net.Dial("tcp", masterNode.String())
				if err != nil {
					return
				}
				wire.NewEncoder(conn).Encode(wire.Registration{
					WorkerID:  "stale-worker",
					Service:   "xxxxx",
					ReplyAddr: "127.0.0.1:1",
				})
				conn.Close()
			}()
			time.Sleep(50 * time.Millisecond)
			startFakeWorker(t, masterNode, service, nil)
			return body(nil)
		},
	}

	err := WithService(context.Background(), master, launcher, func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithService returned error: %v", err)
	}
}

func TestWithServiceSendsShutdownExactlyOnceOnError(t *testing.T) {
	master := newTestMaster(t)

	var shutdownsReceived int32Counter
	launcher := &fakeLauncher{
		launch: func(ctx context.Context, masterNode nodeid.NodeId, service ServiceID, body func(job any) error) error {
			w := startFakeWorker(t, masterNode, service, nil)
			go func() {
				for {
					conn, err := w.transport.Listener().Accept()
					if err != nil {
						return
					}
					var env wire.Envelope
					if err := wire.NewDecoder(conn).Decode(&env); err == nil && !env.IsInvoke && env.Control.Kind == wire.ShutDown {
						shutdownsReceived.inc()
					}
					conn.Close()
				}
			}()
			return body(nil)
		},
	}

	err := WithService(context.Background(), master, launcher, func(ctx context.Context, worker nodeid.NodeId, service ServiceID) error {
		return errors.New("body failed")
	})
	if err == nil {
		t.Fatal("expected body error to propagate")
	}

	deadline := time.After(2 * time.Second)
	for shutdownsReceived.get() != 1 {
		select {
		case <-deadline:
			t.Fatalf("shutdowns received = %d, want 1", shutdownsReceived.get())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// int32Counter is a tiny race-free counter for the shutdown test above.
type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestWithRemoteRunProcessHappyPath(t *testing.T) {
	master := newTestMaster(t)
	launcher := &fakeLauncher{
		launch: func(ctx context.Context, masterNode nodeid.NodeId, service ServiceID, body func(job any) error) error {
			startFakeWorker(t, masterNode, service, func(inv wire.Invoke) wire.InvokeResult {
				return wire.InvokeResult{OK: true, Payload: []byte("42")}
			})
			return body(nil)
		},
	}

	err := WithRemoteRunProcess(context.Background(), master, launcher, func(run func(*closure.LazyClosure[int]) (int, error), worker nodeid.NodeId, service ServiceID) error {
		lc := closure.NewLazyClosure(func() (closure.Closure, error) {
			return closure.Build("add-one", 41, closure.JSONCodec[int]("int"))
		}, closure.JSONCodec[int]("int"))

		result, err := run(lc)
		if err != nil {
			return err
		}
		if result != 42 {
			t.Fatalf("result = %d, want 42", result)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRemoteRunProcess returned error: %v", err)
	}
}

func TestWithRemoteRunProcessHoldAndRetry(t *testing.T) {
	master := newTestMaster(t)
	holds := hold.NewMap()

	var attempt int32Counter
	launcher := &fakeLauncher{
		holds: holds,
		launch: func(ctx context.Context, masterNode nodeid.NodeId, service ServiceID, body func(job any) error) error {
			n := attempt.get()
			attempt.inc()
			if n == 0 {
				startFakeWorker(t, masterNode, service, func(inv wire.Invoke) wire.InvokeResult {
					return wire.InvokeResult{OK: false, ErrMsg: "boom"}
				})
			} else {
				startFakeWorker(t, masterNode, service, func(inv wire.Invoke) wire.InvokeResult {
					return wire.InvokeResult{OK: true, Payload: []byte("42")}
				})
			}
			return body(nil)
		},
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- WithRemoteRunProcess(context.Background(), master, launcher, func(run func(*closure.LazyClosure[int]) (int, error), worker nodeid.NodeId, service ServiceID) error {
			lc := closure.NewLazyClosure(func() (closure.Closure, error) {
				return closure.Build("add-one", 41, closure.JSONCodec[int]("int"))
			}, closure.JSONCodec[int]("int"))
			_, err := run(lc)
			return err
		})
	}()

	// Wait for the first attempt to fail and be parked in the hold map.
	deadline := time.After(2 * time.Second)
	for {
		if list := holds.List(); len(list) == 1 {
			if holds.Release(list[0]) {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("first attempt never reached the hold map")
		case <-time.After(10 * time.Millisecond):
		}
	}

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("WithRemoteRunProcess returned error after retry: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry never completed")
	}
}
