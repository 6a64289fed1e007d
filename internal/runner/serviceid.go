// Package runner implements the master-local service registry and the
// remote runner that ties a worker launcher, the handshake protocol,
// and closure dispatch into one scoped operation.
package runner

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

const serviceIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ServiceID names a transient master-side endpoint expecting exactly
// one worker: a short random string of 5 printable characters.
type ServiceID string

// newServiceID generates a fresh 5-character random ServiceID.
// Collisions are vanishingly unlikely given the id space (62^5 ≈ 916M);
// no retry is specified.
func newServiceID() (ServiceID, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = serviceIDAlphabet[int(b)%len(serviceIDAlphabet)]
	}
	return ServiceID(buf), nil
}

// Endpoint is the master-local mailbox a worker's registration message
// (internal/wire.Registration) is delivered to.
type Endpoint struct {
	inbox chan wireRegistration
}

// wireRegistration is the runner-local shape of a delivered
// registration: the worker's identity, the node address it can be
// reached at for subsequent ShutDown/Invoke sends, and the still-open
// handshake connection to reply Connected on.
type wireRegistration struct {
	service    ServiceID
	workerID   string
	workerNode string
	conn       io.Closer
	encoder    replyEncoder
}

// replyEncoder is the minimal surface WithService needs to send the
// Connected acknowledgement back over the handshake connection.
type replyEncoder interface {
	Encode(v interface{}) error
}

// registry is the master-local ServiceID -> Endpoint mapping.
// Invariant: at any instant at most one endpoint is registered per
// ServiceID.
type registry struct {
	mu        sync.Mutex
	endpoints map[ServiceID]*Endpoint
}

func newRegistry() *registry {
	return &registry{endpoints: make(map[ServiceID]*Endpoint)}
}

func (r *registry) register(id ServiceID) *Endpoint {
	ep := &Endpoint{inbox: make(chan wireRegistration, 1)}
	r.mu.Lock()
	r.endpoints[id] = ep
	r.mu.Unlock()
	return ep
}

func (r *registry) unregister(id ServiceID) {
	r.mu.Lock()
	delete(r.endpoints, id)
	r.mu.Unlock()
}

func (r *registry) deliver(id ServiceID, msg wireRegistration) error {
	r.mu.Lock()
	ep, ok := r.endpoints[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("runner: no endpoint registered for service %q", id)
	}
	select {
	case ep.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("runner: endpoint for service %q is full", id)
	}
}

// withServiceID performs scoped registration: allocate a fresh
// ServiceID, register an Endpoint for it, invoke body, and unregister
// on every exit path (normal return, error, panic).
func (r *registry) withServiceID(body func(id ServiceID, ep *Endpoint) error) error {
	id, err := newServiceID()
	if err != nil {
		return fmt.Errorf("runner: failed to generate service id: %w", err)
	}
	ep := r.register(id)
	defer r.unregister(id)
	return body(id, ep)
}
