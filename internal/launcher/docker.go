package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
)

// DockerLauncher provisions a worker as a Docker container running
// image, and stops it if it's still running when the launcher's
// continuation returns.
type DockerLauncher struct {
	base

	client *client.Client
	Image  string
}

// NewDockerLauncher creates a Docker-based launcher, initialising its
// client from the standard DOCKER_HOST environment.
func NewDockerLauncher(image string, opts ...Option) (*DockerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("launcher: failed to create docker client: %w", err)
	}
	return &DockerLauncher{base: applyOptions(opts), client: cli, Image: image}, nil
}

func mapToEnvList(m map[string]string) []string {
	env := make([]string, 0, len(m))
	for k, v := range m {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// WithLaunchedWorker pulls Image if needed, starts a container running
// it with the worker's registration environment, invokes body while it
// runs, and stops the container afterward if it hasn't already exited.
func (d *DockerLauncher) WithLaunchedWorker(ctx context.Context, master nodeid.NodeId, service runner.ServiceID, body func(job any) error) error {
	if _, err := d.client.ImageInspect(ctx, d.Image); err != nil {
		reader, pullErr := d.client.ImagePull(ctx, d.Image, image.PullOptions{})
		if pullErr != nil {
			return fmt.Errorf("launcher: failed to pull image %s: %w", d.Image, pullErr)
		}
		defer reader.Close()
		io.Copy(io.Discard, reader)
	}

	env := mapToEnvList(workerEnv(master, service))
	containerConfig := &container.Config{
		Image: d.Image,
		Cmd:   workerArgs(master, service, ""),
		Env:   env,
		Tty:   false,
	}
	created, err := d.client.ContainerCreate(ctx, containerConfig, nil, nil, nil, fmt.Sprintf("jobplane-worker-%s", service))
	if err != nil {
		return fmt.Errorf("launcher: failed to create worker container: %w", err)
	}

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("launcher: failed to start worker container: %w", err)
	}
	slog.Info("launcher: started worker container", "service", service, "container", created.ID)

	bodyErr := body(created.ID)

	inspect, err := d.client.ContainerInspect(ctx, created.ID)
	if err != nil {
		slog.Warn("launcher: failed to inspect worker container during teardown", "service", service, "error", err)
	} else if inspect.State != nil && inspect.State.Running {
		timeout := 5
		if err := d.client.ContainerStop(ctx, created.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			slog.Warn("launcher: failed to stop worker container", "service", service, "error", err)
		}
	}

	return bodyErr
}
