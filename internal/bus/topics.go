package bus

import "fmt"

// Topic builders for the grammar rooted at tcgui/<backend>/…. Every backend
// component uses these instead of formatting topic strings ad hoc, so the
// grammar only needs to change in one place.

// Health returns a backend's health + liveliness topic.
func Health(backend string) string {
	return fmt.Sprintf("tcgui/%s/health", backend)
}

// InterfacesList returns a backend's interface-list snapshot topic.
func InterfacesList(backend string) string {
	return fmt.Sprintf("tcgui/%s/interfaces/list", backend)
}

// InterfaceEvents returns a backend's interface-events topic.
func InterfaceEvents(backend string) string {
	return fmt.Sprintf("tcgui/%s/interfaces/events", backend)
}

// Bandwidth returns the per-(namespace, interface) bandwidth topic.
func Bandwidth(backend, namespace, iface string) string {
	return fmt.Sprintf("tcgui/%s/bandwidth/%s/%s", backend, namespace, iface)
}

// TcConfig returns the per-(namespace, interface) TC-config topic.
func TcConfig(backend, namespace, iface string) string {
	return fmt.Sprintf("tcgui/%s/tc/%s/%s", backend, namespace, iface)
}

// ScenarioExecution returns the per-(namespace, interface) scenario
// execution topic.
func ScenarioExecution(backend, namespace, iface string) string {
	return fmt.Sprintf("tcgui/%s/scenario/execution/%s/%s", backend, namespace, iface)
}

// QueryTc returns a backend's TC query/reply topic.
func QueryTc(backend string) string {
	return fmt.Sprintf("tcgui/%s/query/tc", backend)
}

// QueryInterface returns a backend's interface-control query/reply topic.
func QueryInterface(backend string) string {
	return fmt.Sprintf("tcgui/%s/query/interface", backend)
}

// QueryScenario returns a backend's scenario query/reply topic.
func QueryScenario(backend string) string {
	return fmt.Sprintf("tcgui/%s/query/scenario", backend)
}

// QueryScenarioExecution returns a backend's scenario-execution query/reply
// topic.
func QueryScenarioExecution(backend string) string {
	return fmt.Sprintf("tcgui/%s/query/scenario/execution", backend)
}
