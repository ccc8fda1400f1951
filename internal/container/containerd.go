package container

import (
	"context"
	"fmt"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/errdefs"

	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

// defaultContainerdNamespace is the containerd namespace nerdctl and plain
// ctr use by default. Docker's own containerd namespace is "moby", but
// Docker containers are already reported by DockerInspector -- the backend
// composes one ContainerdInspector per distinct containerd namespace it
// cares about, defaulting to this one.
const defaultContainerdNamespace = "default"

// ContainerdInspector lists running containers via the containerd client.
type ContainerdInspector struct {
	client    *containerd.Client
	namespace string
}

// NewContainerdInspector dials the containerd socket at addr and scopes
// every call to namespace (empty defaults to "default").
func NewContainerdInspector(addr, namespace string) (*ContainerdInspector, error) {
	cli, err := containerd.New(addr)
	if err != nil {
		return nil, fmt.Errorf("dial containerd socket %q: %w", addr, err)
	}
	if namespace == "" {
		namespace = defaultContainerdNamespace
	}
	return &ContainerdInspector{client: cli, namespace: namespace}, nil
}

func (c *ContainerdInspector) Runtime() tcproto.ContainerRuntimeTag { return tcproto.RuntimeContainerd }

func (c *ContainerdInspector) List(ctx context.Context) ([]tcproto.ContainerRecord, error) {
	ctx = namespaces.WithNamespace(ctx, c.namespace)

	containers, err := c.client.Containers(ctx)
	if err != nil {
		return nil, &ErrUnavailable{Runtime: tcproto.RuntimeContainerd, Cause: err}
	}

	out := make([]tcproto.ContainerRecord, 0, len(containers))
	for _, ctr := range containers {
		task, err := ctr.Task(ctx, nil)
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue // container exists but has no running task
			}
			continue
		}
		status, err := task.Status(ctx)
		if err != nil || status.Status != containerd.Running {
			continue
		}

		image := ""
		if img, err := ctr.Image(ctx); err == nil {
			image = img.Name()
		}

		out = append(out, tcproto.ContainerRecord{
			Name:          ctr.ID(),
			ShortID:       shortID(ctr.ID()),
			Image:         image,
			RuntimeTag:    tcproto.RuntimeContainerd,
			NamespacePath: netlinkgw.ResolveContainerNetnsPath(int(task.Pid())),
		})
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
