package tcproto

import "strings"

// NamespaceKind tags a NamespaceKey's variant.
type NamespaceKind int

const (
	// NamespaceDefault is the host's own network namespace.
	NamespaceDefault NamespaceKind = iota
	// NamespaceNamed is a namespace created with `ip netns add <name>`.
	NamespaceNamed
	// NamespaceContainer is a running container's network namespace.
	NamespaceContainer
)

// NamespaceKey identifies a network namespace: the default namespace, a
// named namespace under /var/run/netns, or a running container's namespace.
// It is the registry's and the netlink gateway's shared addressing scheme.
type NamespaceKey struct {
	Kind NamespaceKind
	Name string // empty for NamespaceDefault
}

// Default returns the key for the host's own namespace.
func Default() NamespaceKey { return NamespaceKey{Kind: NamespaceDefault} }

// Named returns the key for a named namespace.
func Named(name string) NamespaceKey { return NamespaceKey{Kind: NamespaceNamed, Name: name} }

// Container returns the key for a container's namespace.
func Container(name string) NamespaceKey { return NamespaceKey{Kind: NamespaceContainer, Name: name} }

// IsDefault reports whether k identifies the host's own namespace.
func (k NamespaceKey) IsDefault() bool { return k.Kind == NamespaceDefault }

// String renders the wire form: "default", "<name>", or "container:<name>".
func (k NamespaceKey) String() string {
	switch k.Kind {
	case NamespaceNamed:
		return k.Name
	case NamespaceContainer:
		return "container:" + k.Name
	default:
		return "default"
	}
}

// MarshalText implements encoding.TextMarshaler so NamespaceKey can be used
// directly as a JSON string and as a map key.
func (k NamespaceKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, parsing the wire form
// back into a NamespaceKey.
func (k *NamespaceKey) UnmarshalText(text []byte) error {
	*k = ParseNamespaceKey(string(text))
	return nil
}

// ParseNamespaceKey parses the wire form produced by NamespaceKey.String.
func ParseNamespaceKey(s string) NamespaceKey {
	if s == "" || s == "default" {
		return Default()
	}
	if name, ok := strings.CutPrefix(s, "container:"); ok {
		return Container(name)
	}
	return Named(s)
}
