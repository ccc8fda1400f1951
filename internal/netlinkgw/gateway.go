// Package netlinkgw wraps vishvananda/netlink and vishvananda/netns behind a
// small interface so the rest of the backend never imports rtnetlink types
// directly. The Linux implementation does the real work; non-Linux builds
// get a stub that reports every namespace unavailable, so the daemon still
// builds and runs (against zero interfaces) on a development machine.
package netlinkgw

import (
	"strconv"

	"tcmesh/internal/tcproto"
)

// Gateway is the backend's sole entry point into the kernel's networking
// state: link enumeration, link up/down, and qdisc replace/delete, each
// scoped to a namespace identified by tcproto.NamespaceKey.
type Gateway interface {
	// ListLinks enumerates every interface in ns, translated into
	// InterfaceRecord. HasNetemQdisc reflects whether the link's current
	// root qdisc is netem.
	ListLinks(ns tcproto.NamespaceKey) ([]tcproto.InterfaceRecord, error)

	// SetLinkUp brings iface administratively up within ns.
	SetLinkUp(ns tcproto.NamespaceKey, iface string) error

	// SetLinkDown brings iface administratively down within ns.
	SetLinkDown(ns tcproto.NamespaceKey, iface string) error

	// ReplaceQdisc replaces iface's root qdisc with a netem qdisc encoding
	// cfg. An empty cfg (cfg.IsEmpty()) is equivalent to RemoveQdisc.
	ReplaceQdisc(ns tcproto.NamespaceKey, iface string, cfg tcproto.NetemConfig) error

	// RemoveQdisc deletes iface's root qdisc, restoring default queuing.
	RemoveQdisc(ns tcproto.NamespaceKey, iface string) error

	// QdiscText returns the current root qdisc of iface rendered the way
	// `tc qdisc show` would, for QdiscCoder.Decode to parse. It returns
	// ("", nil) when the interface carries no qdisc or a non-netem one.
	QdiscText(ns tcproto.NamespaceKey, iface string) (string, error)

	// Counters returns the current rx/tx byte and packet counters for
	// iface, for BandwidthSampler to difference against the prior sample.
	Counters(ns tcproto.NamespaceKey, iface string) (tcproto.BandwidthSample, error)

	// RegisterContainerNamespace records the netns path backing a running
	// container's NamespaceKey, e.g. "/proc/<pid>/ns/net". NamespaceRegistry
	// calls this on every discovery tick before routing calls through a
	// tcproto.Container(name) key; the gateway does not discover container
	// namespaces itself.
	RegisterContainerNamespace(name, path string)

	// ForgetContainerNamespace drops a previously registered container
	// namespace mapping once the container disappears.
	ForgetContainerNamespace(name string)

	// Close releases any cached namespace handles.
	Close() error
}

// ResolveContainerNetnsPath is the conventional form of a running
// container's network namespace path given its PID, as exposed by every
// Linux container runtime.
func ResolveContainerNetnsPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid) + "/ns/net"
}
