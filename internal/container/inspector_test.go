package container

import (
	"context"
	"errors"
	"testing"

	"tcmesh/internal/tcproto"
)

func TestFake_ListReturnsSetContainers(t *testing.T) {
	f := NewFake(tcproto.RuntimeDocker)
	f.SetContainers([]tcproto.ContainerRecord{
		{Name: "web", ShortID: "abc123", Image: "nginx", RuntimeTag: tcproto.RuntimeDocker, NamespacePath: "/proc/100/ns/net"},
	})

	got, err := f.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "web" {
		t.Errorf("expected [web], got %+v", got)
	}
}

func TestFake_ListUnavailableOnFault(t *testing.T) {
	f := NewFake(tcproto.RuntimeContainerd)
	f.Faults().FailOnce(FaultList, errors.New("socket closed"))

	_, err := f.List(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var unavailable *ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *ErrUnavailable, got %T: %v", err, err)
	}
	if unavailable.Runtime != tcproto.RuntimeContainerd {
		t.Errorf("expected runtime containerd, got %v", unavailable.Runtime)
	}

	// fault was FailOnce; a second call should succeed.
	if _, err := f.List(context.Background()); err != nil {
		t.Fatalf("expected second call to succeed, got %v", err)
	}
}
