// Package observability provides OpenTelemetry instrumentation for
// jobplane's handshake/dispatch path (tracing) and its dispatch/hold
// counters (Prometheus metrics).
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a
// Prometheus exporter and builds the *RunnerMetrics instruments
// (jobplane_dispatch_attempts_total and friends -- see
// runner_metrics.go) against it in the same call, so a caller can't
// stand up the exporter and forget to register the runner's own
// counters against the meter it feeds. Returns the /metrics HTTP
// handler, the RunnerMetrics instance to wire into runner.SetMetrics,
// and a shutdown function to call on application exit.
func InitMetrics() (http.Handler, *RunnerMetrics, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	runnerMetrics, err := NewRunnerMetrics(provider.Meter("jobplane-runner"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init runner metrics: %w", err)
	}

	return promhttp.Handler(), runnerMetrics, provider.Shutdown, nil
}
