package bandwidth

import (
	"context"
	"testing"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/registry"
	"tcmesh/internal/tcproto"
)

func TestTick_PublishesZeroRateOnFirstSample(t *testing.T) {
	gw := netlinkgw.NewFake()
	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})
	reg := registry.New(gw, nil, t.TempDir())
	reg.Refresh(context.Background())

	session := bus.NewMemory()
	s := New(reg, gw, session, Config{BackendName: "b1", Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := session.Subscribe(ctx, bus.Bandwidth("b1", tcproto.Default().String(), "eth0"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s.Tick()

	select {
	case sample := <-ch:
		update := sample.Payload.(tcproto.BandwidthUpdate)
		if update.Stats.RxBytesPerSec != 0 || update.Stats.TxBytesPerSec != 0 {
			t.Fatalf("expected zero rates on first sample, got %+v", update.Stats)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first bandwidth publish")
	}
}

func TestTick_EvictsDisappearedInterface(t *testing.T) {
	gw := netlinkgw.NewFake()
	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})
	reg := registry.New(gw, nil, t.TempDir())
	reg.Refresh(context.Background())

	session := bus.NewMemory()
	s := New(reg, gw, session, Config{BackendName: "b1", Interval: time.Second})

	s.Tick()

	key := sampleKey{ns: tcproto.Default(), iface: "eth0"}
	s.mu.Lock()
	_, ok := s.prev[key]
	s.mu.Unlock()
	if !ok {
		t.Fatal("expected eth0 sample to be recorded")
	}

	gw.RemoveLink(tcproto.Default(), "eth0")
	s.Tick()

	s.mu.Lock()
	_, ok = s.prev[key]
	_, pubOk := s.publishers[key]
	s.mu.Unlock()
	if ok || pubOk {
		t.Fatal("expected eth0's sampler state to be evicted after it disappeared")
	}
}
