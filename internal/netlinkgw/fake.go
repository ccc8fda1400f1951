package netlinkgw

import (
	"sync"

	"tcmesh/internal/fault"
	"tcmesh/internal/qdisc"
	"tcmesh/internal/tcproto"
)

const (
	FaultListLinks    = "netlinkgw.list_links"
	FaultSetLinkUp    = "netlinkgw.set_link_up"
	FaultSetLinkDown  = "netlinkgw.set_link_down"
	FaultReplaceQdisc = "netlinkgw.replace_qdisc"
	FaultRemoveQdisc  = "netlinkgw.remove_qdisc"
)

type fakeLink struct {
	record tcproto.InterfaceRecord
	config tcproto.NetemConfig
}

// Fake is an in-memory Gateway for tests: namespaces are pre-seeded with
// interfaces via AddLink, and ReplaceQdisc/RemoveQdisc mutate in-memory
// state instead of touching the kernel.
type Fake struct {
	mu         sync.Mutex
	links      map[tcproto.NamespaceKey]map[string]*fakeLink
	containers map[string]string
	faults     *fault.Injector
}

// NewFake constructs an empty Fake gateway.
func NewFake() *Fake {
	return &Fake{
		links:      make(map[tcproto.NamespaceKey]map[string]*fakeLink),
		containers: make(map[string]string),
		faults:     fault.NewInjector(),
	}
}

// Faults exposes the fault injector so tests can force NetlinkFailure or
// NamespaceUnavailable on any operation.
func (f *Fake) Faults() *fault.Injector { return f.faults }

// AddLink seeds ns with an interface. Calling it again for the same
// (ns, name) replaces the record.
func (f *Fake) AddLink(ns tcproto.NamespaceKey, rec tcproto.InterfaceRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links[ns] == nil {
		f.links[ns] = make(map[string]*fakeLink)
	}
	f.links[ns][rec.Name] = &fakeLink{record: rec}
}

// SeedNamespace marks ns as present (accessible) with zero interfaces,
// without requiring a link. Useful for named-namespace probe tests.
func (f *Fake) SeedNamespace(ns tcproto.NamespaceKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links[ns] == nil {
		f.links[ns] = make(map[string]*fakeLink)
	}
}

// RemoveLink deletes an interface from ns, simulating it disappearing.
func (f *Fake) RemoveLink(ns tcproto.NamespaceKey, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links[ns], name)
}

func (f *Fake) ListLinks(ns tcproto.NamespaceKey) ([]tcproto.InterfaceRecord, error) {
	if err := f.faults.Eval(FaultListLinks, ns); err != nil {
		return nil, tcproto.NewError(tcproto.NamespaceUnavailable, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	byName, ok := f.links[ns]
	if !ok {
		if !ns.IsDefault() {
			return nil, tcproto.NewError(tcproto.NamespaceUnavailable, "namespace not found", nil)
		}
		return nil, nil
	}
	out := make([]tcproto.InterfaceRecord, 0, len(byName))
	for _, l := range byName {
		out = append(out, l.record)
	}
	return out, nil
}

func (f *Fake) SetLinkUp(ns tcproto.NamespaceKey, iface string) error {
	if err := f.faults.Eval(FaultSetLinkUp, ns, iface); err != nil {
		return tcproto.NewError(tcproto.NetlinkFailure, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[ns][iface]
	if !ok {
		return tcproto.NewError(tcproto.NamespaceUnavailable, "interface not found", nil)
	}
	l.record.IsUp = true
	return nil
}

func (f *Fake) SetLinkDown(ns tcproto.NamespaceKey, iface string) error {
	if err := f.faults.Eval(FaultSetLinkDown, ns, iface); err != nil {
		return tcproto.NewError(tcproto.NetlinkFailure, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[ns][iface]
	if !ok {
		return tcproto.NewError(tcproto.NamespaceUnavailable, "interface not found", nil)
	}
	l.record.IsUp = false
	return nil
}

func (f *Fake) ReplaceQdisc(ns tcproto.NamespaceKey, iface string, cfg tcproto.NetemConfig) error {
	if cfg.IsEmpty() {
		return f.RemoveQdisc(ns, iface)
	}
	if err := f.faults.Eval(FaultReplaceQdisc, ns, iface, cfg); err != nil {
		return tcproto.NewError(tcproto.NetlinkFailure, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[ns][iface]
	if !ok {
		return tcproto.NewError(tcproto.NamespaceUnavailable, "interface not found", nil)
	}
	l.config = cfg
	l.record.HasNetemQdisc = true
	return nil
}

func (f *Fake) RemoveQdisc(ns tcproto.NamespaceKey, iface string) error {
	if err := f.faults.Eval(FaultRemoveQdisc, ns, iface); err != nil {
		return tcproto.NewError(tcproto.NetlinkFailure, "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[ns][iface]
	if !ok {
		return tcproto.NewError(tcproto.NamespaceUnavailable, "interface not found", nil)
	}
	l.config = tcproto.NetemConfig{}
	l.record.HasNetemQdisc = false
	return nil
}

func (f *Fake) QdiscText(ns tcproto.NamespaceKey, iface string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[ns][iface]
	if !ok || l.config.IsEmpty() {
		return "", nil
	}
	toks := qdisc.Encode(l.config)
	text := "qdisc netem root refcnt 1"
	for _, t := range toks {
		text += " " + t
	}
	return text, nil
}

func (f *Fake) Counters(ns tcproto.NamespaceKey, iface string) (tcproto.BandwidthSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[ns][iface]; !ok {
		return tcproto.BandwidthSample{}, tcproto.NewError(tcproto.NamespaceUnavailable, "interface not found", nil)
	}
	return tcproto.BandwidthSample{}, nil
}

func (f *Fake) RegisterContainerNamespace(name, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[name] = path
}

func (f *Fake) ForgetContainerNamespace(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, name)
}

func (f *Fake) Close() error { return nil }
