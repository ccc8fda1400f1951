package backend

import (
	"time"

	"tcmesh/pkg/sdk/defaults"
)

// Config configures a Host's composition of backend components. Zero
// values fall back to pkg/sdk/defaults.
type Config struct {
	// BackendName identifies this agent in the topic grammar
	// (tcgui/<BackendName>/...).
	BackendName string

	// NetnsDir is the directory ip-netns(8) uses for named namespaces.
	NetnsDir string

	// EnableDocker starts a DockerInspector against the ambient Docker
	// environment. Disabled by default since not every host runs Docker.
	EnableDocker bool

	// ContainerdAddr, if non-empty, starts a ContainerdInspector dialing
	// this socket address (e.g. "/run/containerd/containerd.sock").
	ContainerdAddr      string
	ContainerdNamespace string

	// ScenarioDirs are directories scanned (and watched) for scenario YAML
	// files, in addition to the built-in scenarios.
	ScenarioDirs []string

	DiscoveryInterval time.Duration
	BandwidthInterval time.Duration
	HealthInterval    time.Duration

	InterfaceListHistoryDepth   int
	InterfaceEventsHistoryDepth int
	TcConfigHistoryDepth        int
	TcHeartbeat                 time.Duration
	QueryTimeout                time.Duration
	SleepChunk                  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BackendName == "" {
		c.BackendName = "default"
	}
	if c.NetnsDir == "" {
		c.NetnsDir = defaults.NetnsDir
	}
	if c.DiscoveryInterval == 0 {
		c.DiscoveryInterval = defaults.DiscoveryInterval
	}
	if c.BandwidthInterval == 0 {
		c.BandwidthInterval = defaults.BandwidthInterval
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = defaults.HealthInterval
	}
	if c.InterfaceListHistoryDepth == 0 {
		c.InterfaceListHistoryDepth = defaults.InterfaceListHistoryDepth
	}
	if c.InterfaceEventsHistoryDepth == 0 {
		c.InterfaceEventsHistoryDepth = defaults.InterfaceEventsHistoryDepth
	}
	if c.TcConfigHistoryDepth == 0 {
		c.TcConfigHistoryDepth = defaults.TcConfigHistoryDepth
	}
	if c.TcHeartbeat == 0 {
		c.TcHeartbeat = defaults.TcHeartbeat
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = defaults.QueryTimeout
	}
	if c.SleepChunk == 0 {
		c.SleepChunk = defaults.SleepChunk
	}
	return c
}
