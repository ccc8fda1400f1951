package tcproto

import "errors"

// ErrorKind classifies a failure the core surfaces to callers or logs, per
// the recovery table in the error handling design.
type ErrorKind string

const (
	// NamespaceUnavailable: permission denied or not found. Logged; the
	// namespace is omitted from the current snapshot and retried next tick.
	NamespaceUnavailable ErrorKind = "namespace_unavailable"
	// NetlinkFailure is propagated to the caller; inside a scenario step it
	// is counted in failed_ops and the scenario continues.
	NetlinkFailure ErrorKind = "netlink_failure"
	// QdiscValidation is surfaced as success=false with code and message;
	// nothing is applied.
	QdiscValidation ErrorKind = "qdisc_validation"
	// QdiscDecodeIncomplete is silent; affected fields remain at defaults.
	QdiscDecodeIncomplete ErrorKind = "qdisc_decode_incomplete"
	// ContainerInspectorUnavailable is treated as "no containers", not an
	// error.
	ContainerInspectorUnavailable ErrorKind = "container_inspector_unavailable"
	// SubscriberPublishFailure is logged and counted; the next publication
	// attempt tries again.
	SubscriberPublishFailure ErrorKind = "subscriber_publish_failure"
	// ScenarioLoadError is collected into load_errors; it does not abort
	// startup or hide other scenarios.
	ScenarioLoadError ErrorKind = "scenario_load_error"
	// AlreadyRunning is returned to the caller; the scenario is not started.
	AlreadyRunning ErrorKind = "already_running"
	// QueryTimeout is returned to the caller; inside the scenario engine it
	// is counted in failed_ops.
	QueryTimeout ErrorKind = "query_timeout"
)

// Error wraps a core failure with its recovery-relevant kind. Components
// that need to branch on kind use errors.As against *Error; components that
// only need an error message use it like any other error.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an *Error of the given kind wrapping cause, using cause's
// message unless msg is non-empty.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *Error, returning ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ErrScenarioNotFound names the case of a requested scenario ID that is not
// loaded. The scenario store does not return it: Store.Get reports a missing
// ID through its boolean result.
var ErrScenarioNotFound = errors.New("scenario not found")

// ErrExecutionNotFound is returned by the scenario engine when the caller
// addresses a (namespace, interface) with no active execution.
var ErrExecutionNotFound = errors.New("no active execution for target")
