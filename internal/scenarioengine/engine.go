// Package scenarioengine drives scenario playback: one cooperative task per
// (namespace, interface) target, applying each step through the same TC
// query surface external clients use.
package scenarioengine

import (
	"context"
	"sync"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/logging"
	"tcmesh/internal/scenario"
	"tcmesh/internal/tcproto"
	"tcmesh/pkg/sdk/defaults"
)

type controlKind int

const (
	ctrlPause controlKind = iota
	ctrlResume
	ctrlStop
)

// Config configures an Engine.
type Config struct {
	BackendName  string
	QueryTimeout time.Duration
	SleepChunk   time.Duration

	// OnStep, if set, is called once per applied scenario step (success or
	// failure). BackendHost uses it to drive an OTel counter.
	OnStep func()
}

// Engine owns every active scenario execution.
type Engine struct {
	store   *scenario.Store
	session bus.Session
	cfg     Config

	mu     sync.Mutex
	active map[tcproto.ExecutionKey]*executor
}

// New constructs an Engine and registers its query handler at
// tcgui/<backend>/query/scenario/execution.
func New(store *scenario.Store, session bus.Session, cfg Config) (*Engine, error) {
	check.Assert(store != nil, "scenarioengine.New: store must not be nil")
	check.Assert(session != nil, "scenarioengine.New: session must not be nil")

	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if cfg.SleepChunk == 0 {
		cfg.SleepChunk = defaults.SleepChunk
	}

	e := &Engine{store: store, session: session, cfg: cfg, active: make(map[tcproto.ExecutionKey]*executor)}
	if err := session.RegisterQueryHandler(bus.QueryScenarioExecution(cfg.BackendName), e.handleQuery); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) handleQuery(ctx context.Context, request any) (any, error) {
	req, ok := request.(tcproto.ScenarioExecRequest)
	if !ok {
		return tcproto.ScenarioExecResponse{Success: false, Message: "malformed scenario execution request"}, nil
	}

	key := tcproto.ExecutionKey{Namespace: req.Namespace, Interface: req.Interface}

	switch req.Op {
	case tcproto.ScenarioExecStart:
		return e.start(req, key), nil
	case tcproto.ScenarioExecPause:
		return e.control(key, ctrlPause), nil
	case tcproto.ScenarioExecResume:
		return e.control(key, ctrlResume), nil
	case tcproto.ScenarioExecStop:
		return e.control(key, ctrlStop), nil
	case tcproto.ScenarioExecStatus:
		return e.status(key), nil
	default:
		return tcproto.ScenarioExecResponse{Success: false, Message: "unknown operation"}, nil
	}
}

func (e *Engine) start(req tcproto.ScenarioExecRequest, key tcproto.ExecutionKey) tcproto.ScenarioExecResponse {
	sc, found := e.store.Get(req.ScenarioID)
	if !found {
		return tcproto.ScenarioExecResponse{Success: false, Message: "scenario not found", ErrorCode: tcproto.ScenarioLoadError}
	}

	e.mu.Lock()
	if _, running := e.active[key]; running {
		e.mu.Unlock()
		return tcproto.ScenarioExecResponse{Success: false, Message: "already running on this target", ErrorCode: tcproto.AlreadyRunning}
	}

	pub, err := e.session.DeclarePublisher(
		bus.ScenarioExecution(e.cfg.BackendName, key.Namespace.String(), key.Interface),
		bus.PublisherOptions{HistoryDepth: defaults.ScenarioExecutionHistoryDepth},
	)
	if err != nil {
		e.mu.Unlock()
		return tcproto.ScenarioExecResponse{Success: false, Message: err.Error()}
	}

	ex := newExecutor(e, sc, key, req.Loop, pub)
	e.active[key] = ex
	e.mu.Unlock()

	go ex.run()

	return tcproto.ScenarioExecResponse{Success: true, Message: "started", Execution: ex.snapshot()}
}

func (e *Engine) control(key tcproto.ExecutionKey, kind controlKind) tcproto.ScenarioExecResponse {
	e.mu.Lock()
	ex, ok := e.active[key]
	e.mu.Unlock()
	if !ok {
		return tcproto.ScenarioExecResponse{Success: false, Message: tcproto.ErrExecutionNotFound.Error()}
	}

	select {
	case ex.control <- kind:
	default:
		logging.Component("scenarioengine").Warn("control channel full, dropping message", "target", key.Interface)
	}
	return tcproto.ScenarioExecResponse{Success: true, Message: "ok", Execution: ex.snapshot()}
}

func (e *Engine) status(key tcproto.ExecutionKey) tcproto.ScenarioExecResponse {
	e.mu.Lock()
	ex, ok := e.active[key]
	e.mu.Unlock()
	if !ok {
		return tcproto.ScenarioExecResponse{Success: false, Message: tcproto.ErrExecutionNotFound.Error()}
	}
	return tcproto.ScenarioExecResponse{Success: true, Message: "ok", Execution: ex.snapshot()}
}

// drop removes key from the active table once its executor terminates.
func (e *Engine) drop(key tcproto.ExecutionKey) {
	e.mu.Lock()
	delete(e.active, key)
	e.mu.Unlock()
}
