package runner

import (
	"go.opentelemetry.io/otel"

	"jobplane/internal/observability"
)

// tracer mirrors the teacher's otel.Tracer("worker-agent") convention
// of pulling a named tracer at package scope rather than threading one
// through every call.
var tracer = otel.Tracer("jobplane-runner")

// metrics is nil until SetMetrics is called by the lifecycle driver;
// every recording method on *observability.RunnerMetrics tolerates a
// nil receiver, so the runner never needs to branch on whether metrics
// are configured.
var metrics *observability.RunnerMetrics

// SetMetrics wires m into every subsequent WithService/
// WithRemoteRunProcess call in this process. Call once during startup.
func SetMetrics(m *observability.RunnerMetrics) {
	metrics = m
}
