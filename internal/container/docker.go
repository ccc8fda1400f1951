package container

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

// DockerInspector lists running containers via the Docker Engine API.
type DockerInspector struct {
	cli *client.Client
}

// NewDockerInspector creates an inspector from the ambient Docker
// environment (DOCKER_HOST and friends).
func NewDockerInspector() (*DockerInspector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerInspector{cli: cli}, nil
}

func (d *DockerInspector) Runtime() tcproto.ContainerRuntimeTag { return tcproto.RuntimeDocker }

func (d *DockerInspector) List(ctx context.Context) ([]tcproto.ContainerRecord, error) {
	summaries, err := d.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, &ErrUnavailable{Runtime: tcproto.RuntimeDocker, Cause: err}
	}

	out := make([]tcproto.ContainerRecord, 0, len(summaries))
	for _, s := range summaries {
		inspect, err := d.cli.ContainerInspect(ctx, s.ID)
		if err != nil || inspect.State == nil || !inspect.State.Running || inspect.State.Pid == 0 {
			continue
		}
		name := s.ID[:min(12, len(s.ID))]
		if len(s.Names) > 0 {
			name = trimLeadingSlash(s.Names[0])
		}
		out = append(out, tcproto.ContainerRecord{
			Name:          name,
			ShortID:       s.ID[:min(12, len(s.ID))],
			Image:         s.Image,
			RuntimeTag:    tcproto.RuntimeDocker,
			NamespacePath: netlinkgw.ResolveContainerNetnsPath(inspect.State.Pid),
		})
	}
	return out, nil
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}
