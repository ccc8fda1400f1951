// Package container inspects running containers on the two Linux runtimes
// the backend supports -- Docker and containerd -- to learn each
// container's network namespace path for NamespaceRegistry. An inspector
// that cannot reach its daemon is treated as ContainerInspectorUnavailable,
// not as an error: "no containers" is the degraded-but-valid answer.
package container

import (
	"context"

	"tcmesh/internal/tcproto"
)

// Inspector lists currently running containers for one runtime.
type Inspector interface {
	// Runtime identifies which ContainerRuntimeTag this inspector reports.
	Runtime() tcproto.ContainerRuntimeTag

	// List returns every running container this runtime knows about. A
	// daemon connection failure is reported as ErrUnavailable, which
	// callers must treat as ContainerInspectorUnavailable (empty list, not
	// a propagated error).
	List(ctx context.Context) ([]tcproto.ContainerRecord, error)
}

// ErrUnavailable indicates the inspector could not reach its runtime's
// daemon or socket.
type ErrUnavailable struct {
	Runtime tcproto.ContainerRuntimeTag
	Cause   error
}

func (e *ErrUnavailable) Error() string {
	return "container inspector unavailable: " + string(e.Runtime) + ": " + e.Cause.Error()
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }
