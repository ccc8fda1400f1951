package ifacecontrol

import (
	"context"
	"testing"

	"tcmesh/internal/bus"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

func newTestService(t *testing.T) (*netlinkgw.Fake, *bus.Memory) {
	t.Helper()
	gw := netlinkgw.NewFake()
	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})

	session := bus.NewMemory()
	if _, err := New(gw, session, Config{BackendName: "b1"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	return gw, session
}

func TestHandleQuery_Disable(t *testing.T) {
	_, session := newTestService(t)

	req := tcproto.InterfaceControlRequest{Namespace: tcproto.Default(), Interface: "eth0", Operation: tcproto.ControlDisable}
	resp, err := session.Query(context.Background(), bus.QueryInterface("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ctlResp := resp.(tcproto.InterfaceControlResponse)
	if !ctlResp.Success || ctlResp.NewState {
		t.Fatalf("expected success with NewState=false, got %+v", ctlResp)
	}
}

func TestHandleQuery_Enable(t *testing.T) {
	gw, session := newTestService(t)
	if err := gw.SetLinkDown(tcproto.Default(), "eth0"); err != nil {
		t.Fatalf("seed SetLinkDown: %v", err)
	}

	req := tcproto.InterfaceControlRequest{Namespace: tcproto.Default(), Interface: "eth0", Operation: tcproto.ControlEnable}
	resp, err := session.Query(context.Background(), bus.QueryInterface("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ctlResp := resp.(tcproto.InterfaceControlResponse)
	if !ctlResp.Success || !ctlResp.NewState {
		t.Fatalf("expected success with NewState=true, got %+v", ctlResp)
	}
}

func TestHandleQuery_FailurePreservesCurrentState(t *testing.T) {
	gw, session := newTestService(t)
	gw.Faults().FailAlways(netlinkgw.FaultSetLinkDown, tcproto.NewError(tcproto.NetlinkFailure, "boom", nil))

	req := tcproto.InterfaceControlRequest{Namespace: tcproto.Default(), Interface: "eth0", Operation: tcproto.ControlDisable}
	resp, err := session.Query(context.Background(), bus.QueryInterface("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ctlResp := resp.(tcproto.InterfaceControlResponse)
	if ctlResp.Success {
		t.Fatal("expected failure")
	}
	if !ctlResp.NewState {
		t.Fatalf("expected NewState to reflect the unchanged (up) state, got %+v", ctlResp)
	}
}

func TestHandleQuery_UnknownInterface(t *testing.T) {
	_, session := newTestService(t)

	req := tcproto.InterfaceControlRequest{Namespace: tcproto.Default(), Interface: "ghost", Operation: tcproto.ControlEnable}
	resp, err := session.Query(context.Background(), bus.QueryInterface("b1"), req)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	ctlResp := resp.(tcproto.InterfaceControlResponse)
	if ctlResp.Success {
		t.Fatal("expected failure for unknown interface")
	}
}
