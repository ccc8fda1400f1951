package tcservice

import (
	"context"
	"testing"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

func newTestService(t *testing.T) (*Service, *netlinkgw.Fake, *bus.Memory) {
	t.Helper()
	gw := netlinkgw.NewFake()
	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})

	session := bus.NewMemory()
	svc, err := New(gw, session, Config{BackendName: "b1", HistoryDepth: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, gw, session
}

func TestHandleQuery_ApplyConfig(t *testing.T) {
	svc, gw, session := newTestService(t)

	req := tcproto.TcRequest{
		Namespace: tcproto.Default(),
		Interface: "eth0",
		Operation: tcproto.TcOperation{
			Kind:   tcproto.TcOpApplyConfig,
			Config: tcproto.NetemConfig{Loss: tcproto.LossConfig{Enabled: true, Percent: 5}},
		},
	}

	resp, err := session.Query(context.Background(), bus.QueryTc("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	tcResp, ok := resp.(tcproto.TcResponse)
	if !ok || !tcResp.Success {
		t.Fatalf("expected successful TcResponse, got %+v (ok=%v)", resp, ok)
	}
	if tcResp.AppliedConfig == nil || tcResp.AppliedConfig.Config.Loss.Percent != 5 {
		t.Fatalf("expected applied loss 5%%, got %+v", tcResp.AppliedConfig)
	}

	text, err := gw.QdiscText(tcproto.Default(), "eth0")
	if err != nil || text == "" {
		t.Fatalf("expected qdisc applied on fake gateway, text=%q err=%v", text, err)
	}
}

func TestHandleQuery_ValidationFailure(t *testing.T) {
	svc, _, session := newTestService(t)
	_ = svc

	req := tcproto.TcRequest{
		Namespace: tcproto.Default(),
		Interface: "eth0",
		Operation: tcproto.TcOperation{
			Kind:   tcproto.TcOpApplyConfig,
			Config: tcproto.NetemConfig{Loss: tcproto.LossConfig{Enabled: true, Percent: 500}},
		},
	}

	resp, err := session.Query(context.Background(), bus.QueryTc("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	tcResp := resp.(tcproto.TcResponse)
	if tcResp.Success {
		t.Fatal("expected validation failure for out-of-range loss percent")
	}
	if tcResp.ErrorCode != tcproto.QdiscValidation {
		t.Fatalf("expected QdiscValidation error code, got %q", tcResp.ErrorCode)
	}
}

func TestHandleQuery_RemoveClearsQdisc(t *testing.T) {
	svc, gw, session := newTestService(t)
	_ = svc

	apply := tcproto.TcRequest{
		Namespace: tcproto.Default(),
		Interface: "eth0",
		Operation: tcproto.TcOperation{
			Kind:   tcproto.TcOpApplyConfig,
			Config: tcproto.NetemConfig{Loss: tcproto.LossConfig{Enabled: true, Percent: 5}},
		},
	}
	if _, err := session.Query(context.Background(), bus.QueryTc("b1"), apply); err != nil {
		t.Fatalf("apply Query: %v", err)
	}

	remove := tcproto.TcRequest{
		Namespace: tcproto.Default(),
		Interface: "eth0",
		Operation: tcproto.TcOperation{Kind: tcproto.TcOpRemove},
	}
	resp, err := session.Query(context.Background(), bus.QueryTc("b1"), remove)
	if err != nil {
		t.Fatalf("remove Query: %v", err)
	}
	if !resp.(tcproto.TcResponse).Success {
		t.Fatalf("expected successful removal, got %+v", resp)
	}

	text, err := gw.QdiscText(tcproto.Default(), "eth0")
	if err != nil || text != "" {
		t.Fatalf("expected qdisc cleared, text=%q err=%v", text, err)
	}
}

func TestPublishInitialState_PublishesDetectedConfig(t *testing.T) {
	svc, gw, session := newTestService(t)

	if err := gw.ReplaceQdisc(tcproto.Default(), "eth0", tcproto.NetemConfig{
		Delay: tcproto.DelayConfig{Enabled: true, BaseMs: 100},
	}); err != nil {
		t.Fatalf("seed ReplaceQdisc: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := session.Subscribe(ctx, bus.TcConfig("b1", tcproto.Default().String(), "eth0"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	svc.PublishInitialState(tcproto.Default(), "eth0")

	select {
	case sample := <-ch:
		update := sample.Payload.(tcproto.TcConfigUpdate)
		if !update.HasTc || update.Configuration == nil {
			t.Fatalf("expected HasTc update with configuration, got %+v", update)
		}
		if update.Configuration.Config.Delay.BaseMs != 100 {
			t.Fatalf("expected decoded delay of 100ms, got %+v", update.Configuration.Config.Delay)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial-state publish")
	}
}

func TestForget_ClosesPublisher(t *testing.T) {
	svc, _, session := newTestService(t)

	svc.PublishInitialState(tcproto.Default(), "eth0")

	svc.mu.Lock()
	_, ok := svc.publishers[pubKey{ns: tcproto.Default(), iface: "eth0"}]
	svc.mu.Unlock()
	if !ok {
		t.Fatal("expected a publisher to be registered after initial detection")
	}

	svc.Forget(tcproto.Default(), "eth0")

	svc.mu.Lock()
	_, ok = svc.publishers[pubKey{ns: tcproto.Default(), iface: "eth0"}]
	svc.mu.Unlock()
	if ok {
		t.Fatal("expected publisher to be removed after Forget")
	}

	_ = session
}
