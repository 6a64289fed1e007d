package launcher

import (
	"context"
	"errors"
	"testing"

	"jobplane/internal/nodeid"
)

func TestWorkerArgsCarriesMasterAndService(t *testing.T) {
	args := workerArgs(nodeid.NodeId("10.0.0.1:9000"), "AbCdE", "")
	want := []string{"worker", "--master", "10.0.0.1:9000", "--service", "AbCdE"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args = %v, want %v", args, want)
		}
	}
}

func TestWorkerArgsIncludesLogFileWhenSet(t *testing.T) {
	args := workerArgs(nodeid.NodeId("10.0.0.1:9000"), "AbCdE", "/var/log/worker.log")
	last := args[len(args)-2:]
	if last[0] != "--log-file" || last[1] != "/var/log/worker.log" {
		t.Fatalf("args = %v, want trailing --log-file /var/log/worker.log", args)
	}
}

func TestWorkerEnvCarriesMasterAndService(t *testing.T) {
	env := workerEnv(nodeid.NodeId("10.0.0.1:9000"), "AbCdE")
	if env["JOBPLANE_MASTER_ADDR"] != "10.0.0.1:9000" {
		t.Fatalf("JOBPLANE_MASTER_ADDR = %q", env["JOBPLANE_MASTER_ADDR"])
	}
	if env["JOBPLANE_SERVICE_ID"] != "AbCdE" {
		t.Fatalf("JOBPLANE_SERVICE_ID = %q", env["JOBPLANE_SERVICE_ID"])
	}
}

func TestExecLauncherPropagatesBodyResult(t *testing.T) {
	l := NewExecLauncher("/bin/true", "")
	err := l.WithLaunchedWorker(context.Background(), nodeid.NodeId("127.0.0.1:1"), "AbCdE", func(job any) error {
		if job == nil {
			t.Fatal("job handle should not be nil")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLaunchedWorker returned error: %v", err)
	}
}

func TestExecLauncherPropagatesBodyError(t *testing.T) {
	l := NewExecLauncher("/bin/true", "")
	wantErr := errors.New("body failed")
	err := l.WithLaunchedWorker(context.Background(), nodeid.NodeId("127.0.0.1:1"), "AbCdE", func(job any) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestConnectTimeoutOptionDefaultsToUnbounded(t *testing.T) {
	l := NewExecLauncher("/bin/true", "")
	if _, ok := l.ConnectTimeout(); ok {
		t.Fatal("expected no connect timeout by default")
	}
}
