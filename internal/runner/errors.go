package runner

import "fmt"

// RemoteErrorKind tags the taxonomy of failure a RemoteError carries.
type RemoteErrorKind int

const (
	// Exception means the remote closure returned an error.
	Exception RemoteErrorKind = iota
	// AsyncFailed means the underlying transport reported the dispatch
	// itself failed (e.g. connection reset mid-invoke).
	AsyncFailed
	// AsyncLinkFailed means the worker process died / link was lost.
	AsyncLinkFailed
	// AsyncCancelled means the invocation was cancelled before a
	// result arrived.
	AsyncCancelled
	// AsyncPending means the invocation never resolved before the
	// runner gave up waiting for it (distinct from AsyncCancelled: no
	// cancellation was requested, the transport simply never replied).
	AsyncPending
)

func (k RemoteErrorKind) String() string {
	switch k {
	case Exception:
		return "Exception"
	case AsyncFailed:
		return "AsyncFailed"
	case AsyncLinkFailed:
		return "AsyncLinkFailed"
	case AsyncCancelled:
		return "AsyncCancelled"
	case AsyncPending:
		return "AsyncPending"
	default:
		return fmt.Sprintf("RemoteErrorKind(%d)", int(k))
	}
}

// RemoteError is a tagged failure value carrying the offending
// ServiceID and the taxonomy of what went wrong. It propagates out of
// the remote runner and is the only error type that hold-on-error
// wrapping (WithRemoteRunProcess) recognises.
type RemoteError struct {
	Service ServiceID
	Kind    RemoteErrorKind
	Reason  string
}

func (e *RemoteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("runner: service %s: %s: %s", e.Service, e.Kind, e.Reason)
	}
	return fmt.Sprintf("runner: service %s: %s", e.Service, e.Kind)
}

// TimeoutError is raised when the master's handshake wait exceeds its
// configured timeout without a matching worker registration arriving.
type TimeoutError struct {
	Service ServiceID
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("runner: timed out waiting for worker to register under service %s", e.Service)
}
