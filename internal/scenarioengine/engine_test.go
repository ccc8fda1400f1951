package scenarioengine

import (
	"context"
	"testing"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/scenario"
	"tcmesh/internal/tcservice"
	"tcmesh/internal/tcproto"
)

func newTestEngine(t *testing.T) (*Engine, *bus.Memory) {
	t.Helper()

	gw := netlinkgw.NewFake()
	gw.AddLink(tcproto.Default(), tcproto.InterfaceRecord{Name: "eth0", IsUp: true})

	session := bus.NewMemory()
	if _, err := tcservice.New(gw, session, tcservice.Config{BackendName: "b1"}); err != nil {
		t.Fatalf("tcservice.New: %v", err)
	}

	store, err := scenario.New(nil)
	if err != nil {
		t.Fatalf("scenario.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine, err := New(store, session, Config{
		BackendName:  "b1",
		QueryTimeout: time.Second,
		SleepChunk:   10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine, session
}

func startRequest(scenarioID string, loop bool) tcproto.ScenarioExecRequest {
	return tcproto.ScenarioExecRequest{
		Op:         tcproto.ScenarioExecStart,
		Namespace:  tcproto.Default(),
		Interface:  "eth0",
		ScenarioID: scenarioID,
		Loop:       loop,
	}
}

func TestStart_RunsToCompletion(t *testing.T) {
	_, session := newTestEngine(t)

	resp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), startRequest("builtin-steady-state", false))
	if err != nil {
		t.Fatalf("Query start: %v", err)
	}
	if !resp.(tcproto.ScenarioExecResponse).Success {
		t.Fatalf("expected start to succeed, got %+v", resp)
	}

	// builtin-steady-state holds its single step for 30s.
	deadline := time.Now().Add(35 * time.Second)
	for time.Now().Before(deadline) {
		statusResp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
			Op: tcproto.ScenarioExecStatus, Namespace: tcproto.Default(), Interface: "eth0",
		})
		if err != nil {
			t.Fatalf("Query status: %v", err)
		}
		sr := statusResp.(tcproto.ScenarioExecResponse)
		if !sr.Success {
			// execution table entry was dropped -- it completed and was removed.
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for steady-state scenario to complete")
}

func TestStart_RejectsDuplicateOnSameTarget(t *testing.T) {
	_, session := newTestEngine(t)

	req := startRequest("builtin-bufferbloat", false)
	if _, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), req); err != nil {
		t.Fatalf("Query start: %v", err)
	}

	resp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), req)
	if err != nil {
		t.Fatalf("Query duplicate start: %v", err)
	}
	sr := resp.(tcproto.ScenarioExecResponse)
	if sr.Success || sr.ErrorCode != tcproto.AlreadyRunning {
		t.Fatalf("expected AlreadyRunning, got %+v", sr)
	}

	// clean up so the goroutine doesn't outlive the test.
	_, _ = session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
		Op: tcproto.ScenarioExecStop, Namespace: tcproto.Default(), Interface: "eth0",
	})
}

func TestPause_TransitionsToPaused(t *testing.T) {
	_, session := newTestEngine(t)

	req := startRequest("builtin-bufferbloat", false)
	if _, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), req); err != nil {
		t.Fatalf("Query start: %v", err)
	}
	defer session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
		Op: tcproto.ScenarioExecStop, Namespace: tcproto.Default(), Interface: "eth0",
	})

	pauseResp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
		Op: tcproto.ScenarioExecPause, Namespace: tcproto.Default(), Interface: "eth0",
	})
	if err != nil {
		t.Fatalf("Query pause: %v", err)
	}
	if !pauseResp.(tcproto.ScenarioExecResponse).Success {
		t.Fatalf("expected pause to succeed, got %+v", pauseResp)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		statusResp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
			Op: tcproto.ScenarioExecStatus, Namespace: tcproto.Default(), Interface: "eth0",
		})
		if err != nil {
			t.Fatalf("Query status: %v", err)
		}
		sr := statusResp.(tcproto.ScenarioExecResponse)
		if sr.Success && sr.Execution != nil && sr.Execution.State.Kind == tcproto.ExecPaused {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for execution to report Paused")
}

func TestStop_RemovesExecution(t *testing.T) {
	_, session := newTestEngine(t)

	req := startRequest("builtin-bufferbloat", true)
	if _, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), req); err != nil {
		t.Fatalf("Query start: %v", err)
	}

	stopResp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
		Op: tcproto.ScenarioExecStop, Namespace: tcproto.Default(), Interface: "eth0",
	})
	if err != nil {
		t.Fatalf("Query stop: %v", err)
	}
	if !stopResp.(tcproto.ScenarioExecResponse).Success {
		t.Fatalf("expected stop to succeed, got %+v", stopResp)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		statusResp, err := session.Query(context.Background(), bus.QueryScenarioExecution("b1"), tcproto.ScenarioExecRequest{
			Op: tcproto.ScenarioExecStatus, Namespace: tcproto.Default(), Interface: "eth0",
		})
		if err != nil {
			t.Fatalf("Query status: %v", err)
		}
		if !statusResp.(tcproto.ScenarioExecResponse).Success {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for stopped execution to be removed")
}
