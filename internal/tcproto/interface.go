package tcproto

// InterfaceKind classifies a network interface by how the kernel reports it.
type InterfaceKind string

const (
	KindPhysical InterfaceKind = "physical"
	KindVirtual  InterfaceKind = "virtual"
	KindVeth     InterfaceKind = "veth"
	KindBridge   InterfaceKind = "bridge"
	KindTun      InterfaceKind = "tun"
	KindTap      InterfaceKind = "tap"
	KindLoopback InterfaceKind = "loopback"
)

// ClassifyLinkKind maps a raw rtnetlink link-type string (as reported by
// vishvananda/netlink's Link.Type(), e.g. "veth", "bridge", "bond", "dummy")
// plus the loopback flag onto the closed InterfaceKind set. Unrecognized
// kernel link types fall back to Virtual rather than failing discovery; the
// raw link-type string is not kept in InterfaceRecord.
func ClassifyLinkKind(rawType string, isLoopback bool) InterfaceKind {
	if isLoopback {
		return KindLoopback
	}
	switch rawType {
	case "veth":
		return KindVeth
	case "bridge":
		return KindBridge
	case "tun":
		return KindTun
	case "tap":
		return KindTap
	case "device", "":
		return KindPhysical
	default:
		return KindVirtual
	}
}

// InterfaceRecord is a namespace-scoped network interface as observed by the
// most recent discovery tick. Index is unique within its namespace but not
// process-wide; InterfaceService composes a process-wide key from
// (NamespaceKey, Index).
type InterfaceRecord struct {
	Index         int           `json:"index"`
	Name          string        `json:"name"`
	NamespaceKey  NamespaceKey  `json:"namespace_key"`
	IsUp          bool          `json:"is_up"`
	HasNetemQdisc bool          `json:"has_netem_qdisc"`
	Kind          InterfaceKind `json:"kind"`
}

// Key is the process-wide identity of an interface record.
type InterfaceKey struct {
	Namespace NamespaceKey
	Index     int
}

// Key returns r's process-wide identity.
func (r InterfaceRecord) Key() InterfaceKey {
	return InterfaceKey{Namespace: r.NamespaceKey, Index: r.Index}
}
