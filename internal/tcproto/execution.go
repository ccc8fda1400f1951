package tcproto

// ExecutionStateKind tags an Execution's current lifecycle state.
type ExecutionStateKind int

const (
	ExecRunning ExecutionStateKind = iota
	ExecPaused
	ExecCompleted
	ExecStopped
	ExecFailed
)

// ExecutionState is the tagged-union lifecycle state of an Execution.
// PausedAtMs is meaningful only when Kind is ExecPaused; Message only when
// Kind is ExecFailed.
type ExecutionState struct {
	Kind       ExecutionStateKind `json:"kind"`
	PausedAtMs int64              `json:"paused_at_ms,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Terminal reports whether st is a state the engine will not transition out
// of: Completed, Stopped, or Failed.
func (st ExecutionState) Terminal() bool {
	switch st.Kind {
	case ExecCompleted, ExecStopped, ExecFailed:
		return true
	default:
		return false
	}
}

// ExecutionStats accumulates counters over an execution's lifetime.
type ExecutionStats struct {
	StepsCompleted int     `json:"steps_completed"`
	TcOps          int     `json:"tc_ops"`
	FailedOps      int     `json:"failed_ops"`
	Progress       float64 `json:"progress"`
	LastError      string  `json:"last_error,omitempty"`
}

// ExecutionTarget names the (namespace, interface) pair an execution drives.
type ExecutionTarget struct {
	Namespace NamespaceKey `json:"namespace"`
	Interface string       `json:"interface"`
}

// Execution is an in-progress traversal of a scenario, uniquely keyed by
// (backend, namespace, interface). It is owned by the scenario engine;
// Stop drops ownership and the engine discards the entry after publishing
// the terminal sample.
type Execution struct {
	ScenarioRef string          `json:"scenario_ref"`
	StartWallMs int64           `json:"start_wall_ms"`
	CurrentStep int             `json:"current_step"`
	State       ExecutionState  `json:"state"`
	Target      ExecutionTarget `json:"target"`
	Stats       ExecutionStats  `json:"stats"`
	Loop        bool            `json:"loop"`
}

// ExecutionKey is the scenario engine's execution table key: a running
// execution is unique per (namespace, interface).
type ExecutionKey struct {
	Namespace NamespaceKey
	Interface string
}

// Key returns e's execution table key.
func (e Execution) Key() ExecutionKey {
	return ExecutionKey{Namespace: e.Target.Namespace, Interface: e.Target.Interface}
}
