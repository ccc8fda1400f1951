package scenarioengine

import (
	"context"
	"sync"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/tcproto"
)

const controlBufferCap = 4

// executor drives one scenario execution's state machine on its own
// goroutine. Steps never run concurrently with each other; only different
// executors run in parallel.
type executor struct {
	engine *Engine
	sc     tcproto.Scenario
	key    tcproto.ExecutionKey
	loop   bool
	pub    bus.Publisher

	control chan controlKind

	mu        sync.Mutex
	execution tcproto.Execution
}

func newExecutor(engine *Engine, sc tcproto.Scenario, key tcproto.ExecutionKey, loop bool, pub bus.Publisher) *executor {
	return &executor{
		engine:  engine,
		sc:      sc,
		key:     key,
		loop:    loop,
		pub:     pub,
		control: make(chan controlKind, controlBufferCap),
		execution: tcproto.Execution{
			ScenarioRef: sc.ID,
			StartWallMs: time.Now().UnixMilli(),
			State:       tcproto.ExecutionState{Kind: tcproto.ExecRunning},
			Target:      tcproto.ExecutionTarget{Namespace: key.Namespace, Interface: key.Interface},
			Loop:        loop,
		},
	}
}

func (ex *executor) snapshot() *tcproto.Execution {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	cpy := ex.execution
	return &cpy
}

func (ex *executor) publish() {
	snap := ex.snapshot()
	ex.pub.Publish(tcproto.ScenarioExecutionUpdate{
		Namespace:   ex.key.Namespace,
		Interface:   ex.key.Interface,
		Execution:   *snap,
		BackendName: ex.engine.cfg.BackendName,
		TimestampMs: time.Now().UnixMilli(),
	})
}

// run is the executor's entire lifetime: it walks the scenario's steps,
// looping if configured, until Stop or a terminal state ends it.
func (ex *executor) run() {
	ex.publish()

	for {
		if ex.runOnePass() {
			return
		}
		if !ex.loop {
			ex.finish(tcproto.ExecCompleted, "")
			return
		}
		ex.mu.Lock()
		ex.execution.CurrentStep = 0
		ex.execution.Stats.Progress = 0
		ex.mu.Unlock()
	}
}

// runOnePass walks the scenario's steps once. It returns true if execution
// ended (Stop or failure), false if the pass completed normally (caller
// decides whether to loop).
func (ex *executor) runOnePass() bool {
	for i, step := range ex.sc.Steps {
		ex.mu.Lock()
		ex.execution.CurrentStep = i
		ex.mu.Unlock()

		ex.applyStep(step)
		ex.publish()

		if stopped := ex.interruptibleSleep(time.Duration(step.Hold()) * time.Millisecond); stopped {
			ex.finish(tcproto.ExecStopped, "")
			return true
		}

		ex.mu.Lock()
		ex.execution.Stats.StepsCompleted++
		ex.execution.Stats.Progress = float64(i+1) / float64(len(ex.sc.Steps)) * 100
		ex.mu.Unlock()
		ex.publish()

		if ex.drainNonBlocking() {
			ex.finish(tcproto.ExecStopped, "")
			return true
		}
	}
	return false
}

// applyStep sends the step's ApplyConfig request through the same query
// surface external clients use, then records the outcome in stats.
func (ex *executor) applyStep(step tcproto.Step) {
	ctx, cancel := context.WithTimeout(context.Background(), ex.engine.cfg.QueryTimeout)
	defer cancel()

	req := tcproto.TcRequest{
		Namespace: ex.key.Namespace,
		Interface: ex.key.Interface,
		Operation: tcproto.TcOperation{Kind: tcproto.TcOpApplyConfig, Config: step.Config},
	}

	resp, err := ex.engine.session.Query(ctx, bus.QueryTc(ex.engine.cfg.BackendName), req)

	if ex.engine.cfg.OnStep != nil {
		ex.engine.cfg.OnStep()
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if err != nil {
		ex.execution.Stats.FailedOps++
		ex.execution.Stats.LastError = err.Error()
		return
	}
	tcResp, ok := resp.(tcproto.TcResponse)
	if !ok || !tcResp.Success {
		ex.execution.Stats.FailedOps++
		if ok {
			ex.execution.Stats.LastError = tcResp.Message
		}
		return
	}
	ex.execution.Stats.TcOps++
}

// interruptibleSleep waits for d, broken into ≤ SleepChunk pieces, draining
// the control channel between chunks. It returns true if Stop ended the
// sleep (the caller must not continue past this step).
func (ex *executor) interruptibleSleep(d time.Duration) bool {
	chunk := ex.engine.cfg.SleepChunk
	for d > 0 {
		step := chunk
		if d < step {
			step = d
		}
		timer := time.NewTimer(step)
		select {
		case <-timer.C:
			d -= step
		case msg := <-ex.control:
			timer.Stop()
			if stop := ex.handleControl(msg); stop {
				return true
			}
		}
	}
	return false
}

// handleControl applies one control message mid-sleep. Pause blocks until
// Resume or Stop arrives. It returns true if Stop was observed.
func (ex *executor) handleControl(msg controlKind) bool {
	switch msg {
	case ctrlStop:
		return true
	case ctrlPause:
		ex.mu.Lock()
		ex.execution.State = tcproto.ExecutionState{Kind: tcproto.ExecPaused, PausedAtMs: time.Now().UnixMilli()}
		ex.mu.Unlock()
		ex.publish()

		for {
			next := <-ex.control
			switch next {
			case ctrlStop:
				return true
			case ctrlResume:
				ex.mu.Lock()
				ex.execution.State = tcproto.ExecutionState{Kind: tcproto.ExecRunning}
				ex.mu.Unlock()
				ex.publish()
				return false
			case ctrlPause:
				// already paused, no-op
			}
		}
	case ctrlResume:
		// not paused, no-op
		return false
	}
	return false
}

// drainNonBlocking checks the control channel once, without blocking, right
// after a step's hold completes -- so a Stop/Pause sent the same instant the
// hold naturally elapses is never silently dropped.
func (ex *executor) drainNonBlocking() bool {
	select {
	case msg := <-ex.control:
		return ex.handleControl(msg)
	default:
		return false
	}
}

func (ex *executor) finish(kind tcproto.ExecutionStateKind, message string) {
	ex.mu.Lock()
	ex.execution.State = tcproto.ExecutionState{Kind: kind, Message: message}
	if kind == tcproto.ExecCompleted {
		ex.execution.Stats.Progress = 100
	}
	ex.mu.Unlock()
	ex.publish()
	ex.pub.Close()
	ex.engine.drop(ex.key)
}
