// Package defaults centralizes the magic numbers a backend agent needs when
// the operator's configuration leaves them unset.
package defaults

import "time"

const (
	// NetnsDir is the standard directory ip-netns(8) uses for named
	// network namespaces.
	NetnsDir = "/var/run/netns"

	// DiscoveryInterval is how often InterfaceService re-scans namespaces
	// for interface changes.
	DiscoveryInterval = 5 * time.Second

	// BandwidthInterval is how often BandwidthSampler takes a counter
	// sample.
	BandwidthInterval = 2 * time.Second

	// TcHeartbeat is the per-interface TC-config publisher's miss-detection
	// heartbeat.
	TcHeartbeat = 1 * time.Second

	// InterfaceListHistoryDepth is the history depth on the interface list
	// topic so late subscribers receive the current snapshot.
	InterfaceListHistoryDepth = 1

	// InterfaceEventsHistoryDepth is the history depth on the interface
	// events topic.
	InterfaceEventsHistoryDepth = 10

	// TcConfigHistoryDepth is the history depth on each per-interface TC
	// topic.
	TcConfigHistoryDepth = 1

	// ScenarioExecutionHistoryDepth is the history depth on each
	// per-(namespace,interface) scenario execution topic.
	ScenarioExecutionHistoryDepth = 1

	// QueryTimeout bounds every outgoing query, including the scenario
	// engine's ApplyConfig calls back through the TC query path.
	QueryTimeout = 5 * time.Second

	// SleepChunk is the maximum granularity of the scenario engine's
	// interruptible sleep, balancing Stop/Pause responsiveness against
	// busy-looping.
	SleepChunk = 100 * time.Millisecond

	// HealthInterval is how often BackendHost republishes its health
	// sample.
	HealthInterval = 3 * time.Second
)

// BusTopicPrefix is the root all topics are rooted under: tcgui/<backend>/...
const BusTopicPrefix = "tcgui"
