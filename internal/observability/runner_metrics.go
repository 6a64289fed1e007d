package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// RunnerMetrics instruments the remote-execution path: how many
// dispatch attempts are made, how long the master waits for a worker
// to register, and how many attempts end up parked in the hold map.
type RunnerMetrics struct {
	DispatchAttempts  metric.Int64Counter
	DispatchFailures  metric.Int64Counter
	HandshakeDuration metric.Float64Histogram
	HeldTotal         metric.Int64Counter
}

// NewRunnerMetrics builds a RunnerMetrics from meter, matching the
// naming convention of InitMetrics' Prometheus exporter (metric names
// use underscores, unit suffixes where applicable).
func NewRunnerMetrics(meter metric.Meter) (*RunnerMetrics, error) {
	dispatchAttempts, err := meter.Int64Counter("jobplane_dispatch_attempts_total")
	if err != nil {
		return nil, err
	}
	dispatchFailures, err := meter.Int64Counter("jobplane_dispatch_failures_total")
	if err != nil {
		return nil, err
	}
	handshakeDuration, err := meter.Float64Histogram("jobplane_handshake_duration_seconds")
	if err != nil {
		return nil, err
	}
	heldTotal, err := meter.Int64Counter("jobplane_held_total")
	if err != nil {
		return nil, err
	}
	return &RunnerMetrics{
		DispatchAttempts:  dispatchAttempts,
		DispatchFailures:  dispatchFailures,
		HandshakeDuration: handshakeDuration,
		HeldTotal:         heldTotal,
	}, nil
}

// RecordDispatch records one dispatch attempt and whether it failed.
func (m *RunnerMetrics) RecordDispatch(ctx context.Context, failed bool) {
	if m == nil {
		return
	}
	m.DispatchAttempts.Add(ctx, 1)
	if failed {
		m.DispatchFailures.Add(ctx, 1)
	}
}

// RecordHandshake records how long the master waited for a worker to
// register, in seconds.
func (m *RunnerMetrics) RecordHandshake(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.HandshakeDuration.Record(ctx, seconds)
}

// RecordHeld records one dispatch outcome being parked in the hold map.
func (m *RunnerMetrics) RecordHeld(ctx context.Context) {
	if m == nil {
		return
	}
	m.HeldTotal.Add(ctx, 1)
}
