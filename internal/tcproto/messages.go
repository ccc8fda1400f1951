package tcproto

// TcOperationKind selects the variant of a TcRequest's operation.
type TcOperationKind string

const (
	TcOpApplyConfig TcOperationKind = "apply_config"
	TcOpApply       TcOperationKind = "apply" // legacy flat-field form
	TcOpRemove      TcOperationKind = "remove"
)

// TcLegacyFields mirrors the legacy flat request shape: every feature's
// fields side by side with no nesting. TcService normalizes it into a
// NetemConfig before dispatch.
type TcLegacyFields struct {
	Loss              float64 `json:"loss,omitempty"`
	LossCorrelation   float64 `json:"loss_correlation,omitempty"`
	DelayMs           float64 `json:"delay_ms,omitempty"`
	JitterMs          float64 `json:"jitter_ms,omitempty"`
	DelayCorrelation  float64 `json:"delay_correlation,omitempty"`
	Duplicate         float64 `json:"duplicate,omitempty"`
	Reorder           float64 `json:"reorder,omitempty"`
	ReorderGap        int     `json:"reorder_gap,omitempty"`
	Corrupt           float64 `json:"corrupt,omitempty"`
	RateKbps          int     `json:"rate_kbps,omitempty"`
}

// TcOperation is the tagged-union operation field of a TcRequest.
type TcOperation struct {
	Kind   TcOperationKind `json:"kind"`
	Config NetemConfig     `json:"config,omitempty"`
	Legacy TcLegacyFields  `json:"legacy,omitempty"`
}

// TcRequest asks TcService to apply, legacy-apply, or remove shaping on one
// interface.
type TcRequest struct {
	Namespace NamespaceKey `json:"namespace"`
	Interface string       `json:"interface"`
	Operation TcOperation  `json:"operation"`
}

// TcConfiguration is the flat rendered form of an applied NetemConfig plus a
// human-readable tc(8) command line for display.
type TcConfiguration struct {
	Config  NetemConfig `json:"config"`
	Command string      `json:"command"`
}

// TcResponse answers a TcRequest.
type TcResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	AppliedConfig *TcConfiguration `json:"applied_config,omitempty"`
	ErrorCode     ErrorKind        `json:"error_code,omitempty"`
}

// TcConfigUpdate is published on an interface's TC topic whenever its
// shaping configuration changes, and on the heartbeat interval otherwise.
type TcConfigUpdate struct {
	Namespace     NamespaceKey     `json:"namespace"`
	Interface     string           `json:"interface"`
	BackendName   string           `json:"backend_name"`
	TimestampMs   int64            `json:"timestamp_ms"`
	Configuration *TcConfiguration `json:"configuration,omitempty"`
	HasTc         bool             `json:"has_tc"`
}

// InterfaceControlOp selects Enable or Disable for an InterfaceControlRequest.
type InterfaceControlOp string

const (
	ControlEnable  InterfaceControlOp = "enable"
	ControlDisable InterfaceControlOp = "disable"
)

// InterfaceControlRequest asks InterfaceControlService to bring an
// interface administratively up or down.
type InterfaceControlRequest struct {
	Namespace NamespaceKey       `json:"namespace"`
	Interface string             `json:"interface"`
	Operation InterfaceControlOp `json:"operation"`
}

// InterfaceControlResponse answers an InterfaceControlRequest.
type InterfaceControlResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	NewState bool   `json:"new_state"` // true == up
}

// NamespaceDescriptorKind tags an InterfaceListUpdate namespace entry's
// variant, mirroring NamespaceKind's three cases plus the container
// runtime/id/image detail the wire schema exposes.
type NamespaceDescriptorKind string

const (
	NsDescDefault     NamespaceDescriptorKind = "default"
	NsDescTraditional NamespaceDescriptorKind = "traditional"
	NsDescContainer   NamespaceDescriptorKind = "container"
)

// NamespaceDescriptor describes one namespace and its interfaces within an
// InterfaceListUpdate snapshot.
type NamespaceDescriptor struct {
	Name          string                  `json:"name"`
	ID            string                  `json:"id,omitempty"`
	IsActive      bool                    `json:"is_active"`
	Kind          NamespaceDescriptorKind `json:"namespace_type"`
	RuntimeTag    ContainerRuntimeTag     `json:"runtime,omitempty"`
	ContainerID   string                  `json:"container_id,omitempty"`
	Image         string                  `json:"image,omitempty"`
	Interfaces    []InterfaceRecord       `json:"interfaces"`
}

// InterfaceListUpdate is the full interface snapshot InterfaceService
// publishes on every discovery tick, depth-1 history so late subscribers
// see the current state immediately.
type InterfaceListUpdate struct {
	Namespaces  []NamespaceDescriptor `json:"namespaces"`
	TimestampMs int64                 `json:"timestamp_ms"`
	BackendName string                `json:"backend_name"`
}

// InterfaceEventKind tags an InterfaceStateEvent's cause.
type InterfaceEventKind string

const (
	EventAdded        InterfaceEventKind = "added"
	EventRemoved      InterfaceEventKind = "removed"
	EventStateChanged InterfaceEventKind = "state_changed"
	EventQdiscAdded   InterfaceEventKind = "qdisc_added"
	EventQdiscRemoved InterfaceEventKind = "qdisc_removed"
)

// InterfaceStateEvent is published on the depth-10 events topic for every
// interface diff InterfaceService's discovery loop detects.
type InterfaceStateEvent struct {
	Namespace   NamespaceKey       `json:"namespace"`
	Interface   InterfaceRecord    `json:"interface"`
	EventType   InterfaceEventKind `json:"event_type"`
	TimestampMs int64              `json:"timestamp_ms"`
	BackendName string             `json:"backend_name"`
}

// BandwidthUpdate is published best-effort, with no history, on every
// bandwidth sampler tick for an interface.
type BandwidthUpdate struct {
	Namespace   NamespaceKey    `json:"namespace"`
	Interface   string          `json:"interface"`
	Stats       BandwidthSample `json:"stats"`
	BackendName string          `json:"backend_name"`
}

// ScenarioExecutionUpdate is published on a (namespace, interface)'s
// scenario execution topic after step entry, every progress change, every
// state transition, and the terminal state.
type ScenarioExecutionUpdate struct {
	Namespace   NamespaceKey `json:"namespace"`
	Interface   string       `json:"interface"`
	Execution   Execution    `json:"execution"`
	BackendName string       `json:"backend_name"`
	TimestampMs int64        `json:"timestamp_ms"`
}

// HealthSample is published periodically on a backend's health topic.
type HealthSample struct {
	Status          string `json:"status"`
	NamespaceCount  int    `json:"namespace_count"`
	InterfaceCount  int    `json:"interface_count"`
	TimestampMs     int64  `json:"timestamp_ms"`
}

// LoadErrorCategory classifies why a scenario file failed to load.
type LoadErrorCategory string

const (
	LoadErrorParse    LoadErrorCategory = "parse"
	LoadErrorValidate LoadErrorCategory = "validate"
)

// LoadError describes one scenario file ScenarioStore could not load.
type LoadError struct {
	FilePath string            `json:"file_path"`
	Message  string            `json:"message"`
	Category LoadErrorCategory `json:"category"`
}

// ScenarioQueryOp selects the variant of a ScenarioQueryRequest.
type ScenarioQueryOp string

const (
	ScenarioQueryList ScenarioQueryOp = "list"
	ScenarioQueryGet  ScenarioQueryOp = "get"
)

// ScenarioQueryRequest asks ScenarioStore to list every loaded scenario
// (optionally filtered by tag) or fetch one by ID.
type ScenarioQueryRequest struct {
	Op  ScenarioQueryOp `json:"op"`
	ID  string          `json:"id,omitempty"`
	Tag string          `json:"tag,omitempty"`
}

// ScenarioQueryResponse answers a ScenarioQueryRequest. Scenarios and
// LoadErrors are populated for ScenarioQueryList; Scenario for
// ScenarioQueryGet. Found distinguishes a successful Get from one naming an
// unknown ID.
type ScenarioQueryResponse struct {
	Scenarios  []Scenario  `json:"scenarios,omitempty"`
	LoadErrors []LoadError `json:"load_errors,omitempty"`
	Scenario   *Scenario   `json:"scenario,omitempty"`
	Found      bool        `json:"found"`
}

// ScenarioExecOp selects the variant of a ScenarioExecRequest.
type ScenarioExecOp string

const (
	ScenarioExecStart  ScenarioExecOp = "start"
	ScenarioExecPause  ScenarioExecOp = "pause"
	ScenarioExecResume ScenarioExecOp = "resume"
	ScenarioExecStop   ScenarioExecOp = "stop"
	ScenarioExecStatus ScenarioExecOp = "status"
)

// ScenarioExecRequest asks ScenarioEngine to start, control, or report on an
// execution targeting (Namespace, Interface).
type ScenarioExecRequest struct {
	Op         ScenarioExecOp `json:"op"`
	Namespace  NamespaceKey   `json:"namespace"`
	Interface  string         `json:"interface"`
	ScenarioID string         `json:"scenario_id,omitempty"`
	Loop       bool           `json:"loop,omitempty"`
}

// ScenarioExecResponse answers a ScenarioExecRequest.
type ScenarioExecResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ErrorCode ErrorKind  `json:"error_code,omitempty"`
	Execution *Execution `json:"execution,omitempty"`
}
