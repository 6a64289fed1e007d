// Package launcher provides runner.Launcher implementations that
// provision a worker process on a concrete backend (a local
// subprocess, a Docker container, or a Kubernetes Job) and carry it
// (masterAddr, serviceId, logPath) on its command line so it can dial
// home and register.
package launcher

import (
	"time"

	"jobplane/internal/hold"
	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
)

// base carries the two knobs every runner.Launcher implementation
// shares: how long the master will wait for a worker to register, and
// which hold map (if any) remote errors should be parked in.
type base struct {
	connectTimeout time.Duration
	hasTimeout     bool
	holds          *hold.Map
}

func (b base) ConnectTimeout() (time.Duration, bool) { return b.connectTimeout, b.hasTimeout }
func (b base) Holds() *hold.Map                      { return b.holds }

// Option configures the shared base fields of a launcher at
// construction time.
type Option func(*base)

// WithConnectTimeout bounds how long the master waits for the
// provisioned worker to register before giving up. Omit it (or pass
// zero) to wait indefinitely.
func WithConnectTimeout(d time.Duration) Option {
	return func(b *base) {
		b.connectTimeout = d
		b.hasTimeout = d > 0
	}
}

// WithHolds attaches a hold map so that remote errors surfacing from
// workers this launcher provisions get parked for operator release
// instead of propagating immediately.
func WithHolds(holds *hold.Map) Option {
	return func(b *base) { b.holds = holds }
}

func applyOptions(opts []Option) base {
	var b base
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// workerArgs is the command line every launcher backend hands the
// worker binary, carrying exactly what the handshake protocol needs to
// dial the master and prove which service it's registering for.
func workerArgs(master nodeid.NodeId, service runner.ServiceID, logFile string) []string {
	args := []string{"worker", "--master", master.String(), "--service", string(service)}
	if logFile != "" {
		args = append(args, "--log-file", logFile)
	}
	return args
}

// workerEnv mirrors workerArgs as environment variables, for backends
// (Docker, Kubernetes) that run their own entrypoint and read
// configuration from the environment rather than trusting an operator
// to pass matching flags.
func workerEnv(master nodeid.NodeId, service runner.ServiceID) map[string]string {
	return map[string]string{
		"JOBPLANE_MASTER_ADDR": master.String(),
		"JOBPLANE_SERVICE_ID":  string(service),
	}
}
