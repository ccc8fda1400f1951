package registry

import (
	"context"
	"testing"

	"tcmesh/internal/container"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

func TestRegistry_AlwaysIncludesDefault(t *testing.T) {
	gw := netlinkgw.NewFake()
	r := New(gw, nil, t.TempDir())
	r.Refresh(context.Background())

	keys := r.Namespaces()
	if len(keys) != 1 || !keys[0].IsDefault() {
		t.Fatalf("expected only the default namespace, got %v", keys)
	}
}

func TestRegistry_MergesContainersFromInspectors(t *testing.T) {
	gw := netlinkgw.NewFake()
	fakeInsp := container.NewFake(tcproto.RuntimeDocker)
	fakeInsp.SetContainers([]tcproto.ContainerRecord{
		{Name: "web", RuntimeTag: tcproto.RuntimeDocker, NamespacePath: "/proc/100/ns/net"},
	})

	r := New(gw, []container.Inspector{fakeInsp}, t.TempDir())
	r.Refresh(context.Background())

	containers := r.Containers()
	if len(containers) != 1 {
		t.Fatalf("expected 1 container, got %d", len(containers))
	}
	rec, ok := r.ContainerByName("web")
	if !ok || rec.NamespacePath != "/proc/100/ns/net" {
		t.Fatalf("expected web's namespace path to be registered, got %+v ok=%v", rec, ok)
	}

	found := false
	for _, k := range r.Namespaces() {
		if k == tcproto.Container("web") {
			found = true
		}
	}
	if !found {
		t.Error("expected container(web) among namespace keys")
	}
}

func TestRegistry_DroppedContainerForgottenByGateway(t *testing.T) {
	gw := netlinkgw.NewFake()
	fakeInsp := container.NewFake(tcproto.RuntimeDocker)
	fakeInsp.SetContainers([]tcproto.ContainerRecord{
		{Name: "web", RuntimeTag: tcproto.RuntimeDocker, NamespacePath: "/proc/100/ns/net"},
	})

	r := New(gw, []container.Inspector{fakeInsp}, t.TempDir())
	r.Refresh(context.Background())

	fakeInsp.SetContainers(nil)
	r.Refresh(context.Background())

	if _, ok := r.ContainerByName("web"); ok {
		t.Error("expected web to be dropped after disappearing")
	}
}

func TestRegistry_InspectorUnavailableIsNotFatal(t *testing.T) {
	gw := netlinkgw.NewFake()
	fakeInsp := container.NewFake(tcproto.RuntimeContainerd)
	fakeInsp.Faults().FailAlways(container.FaultList, errContainerdDown{})

	r := New(gw, []container.Inspector{fakeInsp}, t.TempDir())
	r.Refresh(context.Background())

	if len(r.Containers()) != 0 {
		t.Error("expected no containers when inspector is unavailable")
	}
	// default namespace must still be reported.
	if len(r.Namespaces()) != 1 {
		t.Errorf("expected only default namespace, got %v", r.Namespaces())
	}
}

type errContainerdDown struct{}

func (errContainerdDown) Error() string { return "containerd socket closed" }
