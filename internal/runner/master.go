package runner

import (
	"log/slog"
	"net"

	"jobplane/internal/nodeid"
	"jobplane/internal/wire"
)

// Master owns the master-side node: a single bound TCP transport that
// every worker dials to register, demultiplexed to the Endpoint each
// concurrent WithService scope has registered under its ServiceID.
type Master struct {
	transport *nodeid.Transport
	registry  *registry
}

// NewMaster starts accepting worker registrations on transport. Call
// Close when the master process is shutting down.
func NewMaster(transport *nodeid.Transport) *Master {
	m := &Master{transport: transport, registry: newRegistry()}
	go m.acceptLoop()
	return m
}

// NodeID returns the master's own address, which is what launchers pass
// to workers as the "master address" to dial.
func (m *Master) NodeID() nodeid.NodeId {
	return nodeid.NewLocalNode(m.transport)
}

// Close stops accepting new connections.
func (m *Master) Close() error {
	return m.transport.Listener().Close()
}

func (m *Master) acceptLoop() {
	for {
		conn, err := m.transport.Listener().Accept()
		if err != nil {
			// Listener closed; the master is shutting down.
			return
		}
		go m.handleConn(conn)
	}
}

// handleConn reads exactly one Registration from conn and either routes
// it to the matching Endpoint (leaving the connection open for
// WithService to reply Connected on) or, if no endpoint is currently
// registered for the embedded service id, logs it as a stale/unmatched
// registration and closes the connection without a reply -- the worker
// sees its read of the handshake reply fail and retries.
func (m *Master) handleConn(conn net.Conn) {
	dec := wire.NewDecoder(conn)
	var reg wire.Registration
	if err := dec.Decode(&reg); err != nil {
		slog.Warn("runner: failed to decode worker registration", "error", err)
		conn.Close()
		return
	}

	wr := wireRegistration{
		service:    ServiceID(reg.Service),
		workerID:   reg.WorkerID,
		workerNode: reg.ReplyAddr,
		conn:       conn,
		encoder:    wire.NewEncoder(conn),
	}

	if err := m.registry.deliver(wr.service, wr); err != nil {
		slog.Warn("runner: stale worker registration ignored", "service", wr.service, "worker", wr.workerID)
		conn.Close()
		return
	}
	// Ownership of conn now belongs to whichever WithService call reads
	// wr off the Endpoint's inbox; it replies Connected and closes it.
}
