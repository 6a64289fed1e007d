// Package config handles environment variable loading for both the
// master and worker roles.
package config

import (
	"fmt"
	"os"
	"strconv"

	"jobplane/internal/hold"
	"jobplane/internal/nodeid"
)

// MasterConfig holds the master process's configuration.
type MasterConfig struct {
	// DatabaseURL is the Postgres connection string for the program
	// bookkeeping store.
	DatabaseURL string

	// BindHost is the host the master's node transport binds to.
	BindHost string

	// HoldPortStart is the first port the hold coordinator's HTTP
	// server tries to bind, incrementing on conflict.
	HoldPortStart int

	// HoldSecret, if non-empty, requires Authorization: Bearer
	// <HoldSecret> on every hold-coordinator request.
	HoldSecret string

	// Launcher selects the worker provisioning backend: "exec",
	// "docker", or "kubernetes".
	Launcher string

	// WorkerImage names the container image the docker/kubernetes
	// launchers provision workers from. Unused by the exec launcher,
	// which runs a staged copy of this binary instead.
	WorkerImage string

	// LogFile, if set, redirects the master's structured logging to
	// this path instead of stdout.
	LogFile string

	// OTELEndpoint is the OTLP/gRPC collector address for tracing.
	OTELEndpoint string
}

// WorkerConfig holds the worker process's configuration.
type WorkerConfig struct {
	// MasterAddr is the master's node address to dial for the
	// handshake.
	MasterAddr string

	// Service is the ServiceID this worker registers under.
	Service string

	// LogFile, if set, redirects the worker's structured logging to
	// this path instead of stdout.
	LogFile string

	// MetricsPort is the port the worker's dedicated /metrics HTTP
	// server listens on.
	MetricsPort int

	// OTELEndpoint is the OTLP/gRPC collector address for tracing.
	OTELEndpoint string
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// LoadMaster reads master configuration from the environment.
// JOBPLANE_DATABASE_URL is required; every other field has a default.
func LoadMaster() (*MasterConfig, error) {
	dbURL := os.Getenv("JOBPLANE_DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("JOBPLANE_DATABASE_URL is required")
	}

	holdPortStart, err := getEnvIntDefault("JOBPLANE_HOLD_PORT_START", hold.DefaultStartPort)
	if err != nil {
		return nil, err
	}

	return &MasterConfig{
		DatabaseURL:   dbURL,
		BindHost:      getEnvDefault("JOBPLANE_BIND_HOST", "0.0.0.0"),
		HoldPortStart: holdPortStart,
		HoldSecret:    os.Getenv("JOBPLANE_HOLD_SECRET"),
		Launcher:      getEnvDefault("JOBPLANE_LAUNCHER", "exec"),
		WorkerImage:   os.Getenv("JOBPLANE_WORKER_IMAGE"),
		LogFile:       os.Getenv("JOBPLANE_MASTER_LOG_FILE"),
		OTELEndpoint:  getEnvDefault("JOBPLANE_OTEL_ENDPOINT", "localhost:4317"),
	}, nil
}

// LoadWorker reads worker configuration from the environment,
// overridden by the equivalent CLI flags on cmd/jobplane's worker
// subcommand (flags win when both are set).
func LoadWorker() (*WorkerConfig, error) {
	master := os.Getenv("JOBPLANE_MASTER_ADDR")
	service := os.Getenv("JOBPLANE_SERVICE_ID")

	metricsPort, err := getEnvIntDefault("JOBPLANE_WORKER_METRICS_PORT", 6162)
	if err != nil {
		return nil, err
	}

	return &WorkerConfig{
		MasterAddr:   master,
		Service:      service,
		LogFile:      os.Getenv("JOBPLANE_WORKER_LOG_FILE"),
		MetricsPort:  metricsPort,
		OTELEndpoint: getEnvDefault("JOBPLANE_OTEL_ENDPOINT", "localhost:4317"),
	}, nil
}

// PortRange returns the candidate port list the master's node
// transport binds from: nodeid.DefaultPortRange().
func PortRange() []int {
	return nodeid.DefaultPortRange()
}
