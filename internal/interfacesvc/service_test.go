package interfacesvc

import (
	"context"
	"sync"
	"testing"

	"tcmesh/internal/bus"
	"tcmesh/internal/container"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/registry"
	"tcmesh/internal/tcproto"
)

// fakeTcPublisher records PublishInitialState/Forget calls without touching
// a real TcService, keeping this package's tests independent of tcservice.
type fakeTcPublisher struct {
	mu       sync.Mutex
	detected []string
	forgot   []string
}

func (f *fakeTcPublisher) PublishInitialState(ns tcproto.NamespaceKey, iface string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detected = append(f.detected, ns.String()+"/"+iface)
}

func (f *fakeTcPublisher) Forget(ns tcproto.NamespaceKey, iface string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, ns.String()+"/"+iface)
}

func newTestService(t *testing.T) (*Service, *netlinkgw.Fake, *fakeTcPublisher, *bus.Memory) {
	t.Helper()

	gw := netlinkgw.NewFake()
	reg := registry.New(gw, []container.Inspector{}, t.TempDir())
	session := bus.NewMemory()
	tc := &fakeTcPublisher{}

	svc, err := New(reg, gw, session, tc, Config{BackendName: "b1", ListDepth: 1, EventsDepth: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, gw, tc, session
}

func TestTick_PublishesListAndDetectsNewInterface(t *testing.T) {
	svc, gw, tc, session := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := session.Subscribe(ctx, bus.InterfacesList("b1"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})
	svc.Tick(context.Background())

	select {
	case sample := <-sub:
		upd := sample.Payload.(tcproto.InterfaceListUpdate)
		if len(upd.Namespaces) != 1 || len(upd.Namespaces[0].Interfaces) != 1 {
			t.Fatalf("expected 1 namespace with 1 interface, got %+v", upd.Namespaces)
		}
	default:
		t.Fatal("expected a published interface list")
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	if len(tc.detected) != 1 {
		t.Fatalf("expected PublishInitialState to be called once, got %v", tc.detected)
	}
}

func TestTick_PublishesStateChangedEvent(t *testing.T) {
	svc, gw, _, session := newTestService(t)

	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})
	svc.Tick(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := session.Subscribe(ctx, bus.InterfaceEvents("b1"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The events topic keeps history, so the Added event from the first
	// tick is replayed to the new subscriber ahead of any live event.
	select {
	case sample := <-sub:
		if ev := sample.Payload.(tcproto.InterfaceStateEvent); ev.EventType != tcproto.EventAdded {
			t.Fatalf("expected replayed EventAdded first, got %v", ev.EventType)
		}
	default:
		t.Fatal("expected the Added event to be replayed")
	}

	if err := gw.SetLinkDown(tcproto.Default(), "eth0"); err != nil {
		t.Fatalf("SetLinkDown: %v", err)
	}
	svc.Tick(context.Background())

	select {
	case sample := <-sub:
		ev := sample.Payload.(tcproto.InterfaceStateEvent)
		if ev.EventType != tcproto.EventStateChanged {
			t.Fatalf("expected EventStateChanged, got %v", ev.EventType)
		}
	default:
		t.Fatal("expected a state-changed event")
	}
}

func TestTick_ForgetsRemovedInterface(t *testing.T) {
	svc, gw, tc, _ := newTestService(t)

	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})
	svc.Tick(context.Background())

	gw.RemoveLink(tcproto.Default(), "eth0")
	svc.Tick(context.Background())

	tc.mu.Lock()
	defer tc.mu.Unlock()
	if len(tc.forgot) != 1 {
		t.Fatalf("expected Forget to be called once, got %v", tc.forgot)
	}
}
