package container

import (
	"context"
	"sync"

	"tcmesh/internal/fault"
	"tcmesh/internal/tcproto"
)

const FaultList = "container.list"

// Fake is an in-memory Inspector for tests. Containers are set wholesale
// via SetContainers, mirroring how a real runtime's List call returns the
// current world on every poll rather than incremental diffs.
type Fake struct {
	mu         sync.Mutex
	runtime    tcproto.ContainerRuntimeTag
	containers []tcproto.ContainerRecord
	faults     *fault.Injector
}

// NewFake constructs a Fake reporting as the given runtime.
func NewFake(runtime tcproto.ContainerRuntimeTag) *Fake {
	return &Fake{runtime: runtime, faults: fault.NewInjector()}
}

// Faults exposes the fault injector so tests can force ErrUnavailable.
func (f *Fake) Faults() *fault.Injector { return f.faults }

// SetContainers replaces the current container set.
func (f *Fake) SetContainers(records []tcproto.ContainerRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers = append([]tcproto.ContainerRecord(nil), records...)
}

func (f *Fake) Runtime() tcproto.ContainerRuntimeTag { return f.runtime }

func (f *Fake) List(ctx context.Context) ([]tcproto.ContainerRecord, error) {
	if err := f.faults.Eval(FaultList); err != nil {
		return nil, &ErrUnavailable{Runtime: f.runtime, Cause: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tcproto.ContainerRecord(nil), f.containers...), nil
}
