//go:build !linux

package netlinkgw

import "tcmesh/internal/tcproto"

// Stub is the non-Linux Gateway: every namespace is reported unavailable so
// the daemon still builds and runs (against zero interfaces) during local
// development off a Linux box.
type Stub struct{}

// NewLinux is named to match the Linux build's constructor so callers in
// internal/backend don't need a build-tagged call site.
func NewLinux() *Stub { return &Stub{} }

func (s *Stub) ListLinks(ns tcproto.NamespaceKey) ([]tcproto.InterfaceRecord, error) {
	return nil, tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) SetLinkUp(ns tcproto.NamespaceKey, iface string) error {
	return tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) SetLinkDown(ns tcproto.NamespaceKey, iface string) error {
	return tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) ReplaceQdisc(ns tcproto.NamespaceKey, iface string, cfg tcproto.NetemConfig) error {
	return tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) RemoveQdisc(ns tcproto.NamespaceKey, iface string) error {
	return tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) QdiscText(ns tcproto.NamespaceKey, iface string) (string, error) {
	return "", tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) Counters(ns tcproto.NamespaceKey, iface string) (tcproto.BandwidthSample, error) {
	return tcproto.BandwidthSample{}, tcproto.NewError(tcproto.NamespaceUnavailable, "netlink gateway unsupported on this platform", nil)
}

func (s *Stub) RegisterContainerNamespace(name, path string) {}
func (s *Stub) ForgetContainerNamespace(name string)          {}

func (s *Stub) Close() error { return nil }
