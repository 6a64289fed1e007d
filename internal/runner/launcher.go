package runner

import (
	"context"
	"time"

	"jobplane/internal/hold"
	"jobplane/internal/nodeid"
)

// Launcher provisions a worker process given a master address and
// service id. Implementations (Docker, Kubernetes, local exec) supply
// WithLaunchedWorker. Contract: the launcher MUST start exactly one
// worker process whose command line carries (masterAddress, serviceId,
// logPath) and invoke body with the opaque job handle while the worker
// is running. On body's return, the launcher MUST either have already
// observed worker termination or cancel the job.
type Launcher interface {
	WithLaunchedWorker(ctx context.Context, master nodeid.NodeId, service ServiceID, body func(job any) error) error

	// ConnectTimeout returns the master-side handshake wait budget.
	// ok=false means wait indefinitely.
	ConnectTimeout() (d time.Duration, ok bool)

	// Holds returns the launcher's attached hold map, or nil if none is
	// configured -- in which case remote errors propagate unchanged
	// instead of pausing for operator release.
	Holds() *hold.Map
}
