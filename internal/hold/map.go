// Package hold implements the hold/release coordinator: an in-memory
// set of held service-ids exposed through an HTTP control plane that
// lets an operator pause a failed computation indefinitely and resume
// or abandon it.
package hold

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// latch is a single-shot release gate: closed at most once.
type latch struct {
	ch   chan struct{}
	once sync.Once
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// fire closes the latch's channel if it hasn't already been closed.
// Firing an already-released latch is a no-op that emits a warning,
// never an error.
func (l *latch) fire() {
	fired := false
	l.once.Do(func() { fired = true; close(l.ch) })
	if !fired {
		slog.Warn("hold: latch fired more than once")
	}
}

// Map is the concurrent mapping from ServiceId (as text) to a
// single-shot release latch. Insert/list/release are guarded by a mutex
// so they are linearisable with respect to one another.
type Map struct {
	mu      sync.Mutex
	latches map[string]*latch
}

// NewMap creates an empty hold map.
func NewMap() *Map {
	return &Map{latches: make(map[string]*latch)}
}

// BlockUntilReleased inserts a fresh latch under service and blocks
// until it is fired or ctx is cancelled. If a latch is already
// registered under service -- the caller's responsibility to avoid,
// per spec, since the remote runner never does this concurrently for
// the same id -- the existing one is replaced and a warning is logged
// (Open Question in DESIGN.md).
func (m *Map) BlockUntilReleased(ctx context.Context, service string) error {
	m.mu.Lock()
	if _, exists := m.latches[service]; exists {
		slog.Warn("hold: replacing live latch", "service", service)
	}
	l := newLatch()
	m.latches[service] = l
	m.mu.Unlock()

	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release fires and removes the latch for service if present, returning
// true if a hold was actually released.
func (m *Map) Release(service string) bool {
	m.mu.Lock()
	l, ok := m.latches[service]
	if ok {
		delete(m.latches, service)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	l.fire()
	return true
}

// ReleaseAll releases every currently held service and returns their
// ids, in sorted order for a deterministic response.
func (m *Map) ReleaseAll() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.latches))
	latches := make([]*latch, 0, len(m.latches))
	for id, l := range m.latches {
		ids = append(ids, id)
		latches = append(latches, l)
	}
	m.latches = make(map[string]*latch)
	m.mu.Unlock()

	for _, l := range latches {
		l.fire()
	}
	sort.Strings(ids)
	return ids
}

// List enumerates currently held service ids, in sorted order.
func (m *Map) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.latches))
	for id := range m.latches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
