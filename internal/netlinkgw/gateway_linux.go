//go:build linux

package netlinkgw

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"tcmesh/internal/check"
	"tcmesh/internal/qdisc"
	"tcmesh/internal/tcproto"
)

// Linux is the real Gateway implementation backed by vishvananda/netlink
// and vishvananda/netns.
type Linux struct {
	mu         sync.Mutex
	containers map[string]string // container name -> netns path
}

// NewLinux constructs a Linux gateway.
func NewLinux() *Linux {
	return &Linux{containers: make(map[string]string)}
}

func (g *Linux) RegisterContainerNamespace(name, path string) {
	g.mu.Lock()
	g.containers[name] = path
	g.mu.Unlock()
}

func (g *Linux) ForgetContainerNamespace(name string) {
	g.mu.Lock()
	delete(g.containers, name)
	g.mu.Unlock()
}

func (g *Linux) Close() error { return nil }

// withHandle runs fn with a netlink handle scoped to ns. Switching network
// namespaces is thread-local on Linux, so the calling goroutine is locked
// to its OS thread for the duration.
func (g *Linux) withHandle(ns tcproto.NamespaceKey, fn func(*netlink.Handle) error) error {
	switch ns.Kind {
	case tcproto.NamespaceDefault:
		h, err := netlink.NewHandle()
		if err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, "open default namespace handle", err)
		}
		defer h.Delete()
		return fn(h)

	case tcproto.NamespaceNamed:
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		target, err := netns.GetFromName(ns.Name)
		if err != nil {
			return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("named namespace %q not found", ns.Name), err)
		}
		defer target.Close()
		h, err := netlink.NewHandleAt(target)
		if err != nil {
			return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("open handle for namespace %q", ns.Name), err)
		}
		defer h.Delete()
		return fn(h)

	case tcproto.NamespaceContainer:
		g.mu.Lock()
		path, ok := g.containers[ns.Name]
		g.mu.Unlock()
		if !ok {
			return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("no registered namespace path for container %q", ns.Name), nil)
		}

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		target, err := netns.GetFromPath(path)
		if err != nil {
			return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("open container %q namespace at %s", ns.Name, path), err)
		}
		defer target.Close()
		h, err := netlink.NewHandleAt(target)
		if err != nil {
			return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("open handle for container %q", ns.Name), err)
		}
		defer h.Delete()
		return fn(h)

	default:
		check.Assertf(false, "netlinkgw: unknown namespace kind %v", ns.Kind)
		return nil
	}
}

func (g *Linux) ListLinks(ns tcproto.NamespaceKey) ([]tcproto.InterfaceRecord, error) {
	var out []tcproto.InterfaceRecord
	err := g.withHandle(ns, func(h *netlink.Handle) error {
		links, err := h.LinkList()
		if err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, "list links", err)
		}
		for _, link := range links {
			attrs := link.Attrs()
			hasNetem, err := linkHasNetem(h, link)
			if err != nil {
				return err
			}
			out = append(out, tcproto.InterfaceRecord{
				Index:         attrs.Index,
				Name:          attrs.Name,
				NamespaceKey:  ns,
				IsUp:          attrs.Flags&unix.IFF_UP != 0,
				HasNetemQdisc: hasNetem,
				Kind:          tcproto.ClassifyLinkKind(link.Type(), attrs.Name == "lo"),
			})
		}
		return nil
	})
	return out, err
}

func (g *Linux) SetLinkUp(ns tcproto.NamespaceKey, iface string) error {
	return g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		if err := h.LinkSetUp(link); err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("set %q up", iface), err)
		}
		return nil
	})
}

func (g *Linux) SetLinkDown(ns tcproto.NamespaceKey, iface string) error {
	return g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		if err := h.LinkSetDown(link); err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("set %q down", iface), err)
		}
		return nil
	})
}

func (g *Linux) ReplaceQdisc(ns tcproto.NamespaceKey, iface string, cfg tcproto.NetemConfig) error {
	if cfg.IsEmpty() {
		return g.RemoveQdisc(ns, iface)
	}
	return g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		netem := buildNetemAttrs(link.Attrs().Index, cfg)
		if err := h.QdiscReplace(netem); err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("replace qdisc on %q", iface), err)
		}
		return nil
	})
}

func (g *Linux) RemoveQdisc(ns tcproto.NamespaceKey, iface string) error {
	return g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		qdiscs, err := h.QdiscList(link)
		if err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("list qdiscs on %q", iface), err)
		}
		for _, qd := range qdiscs {
			if qd.Attrs().Parent != netlink.HANDLE_ROOT {
				continue
			}
			if err := h.QdiscDel(qd); err != nil {
				return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("delete qdisc on %q", iface), err)
			}
		}
		return nil
	})
}

func (g *Linux) QdiscText(ns tcproto.NamespaceKey, iface string) (string, error) {
	var text string
	err := g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		qdiscs, err := h.QdiscList(link)
		if err != nil {
			return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("list qdiscs on %q", iface), err)
		}
		for _, qd := range qdiscs {
			netemQd, ok := qd.(*netlink.Netem)
			if !ok {
				continue
			}
			text = renderNetemText(netemQd)
			return nil
		}
		return nil
	})
	return text, err
}

func (g *Linux) Counters(ns tcproto.NamespaceKey, iface string) (tcproto.BandwidthSample, error) {
	var sample tcproto.BandwidthSample
	err := g.withHandle(ns, func(h *netlink.Handle) error {
		link, err := h.LinkByName(iface)
		if err != nil {
			return linkLookupErr(iface, err)
		}
		stats := link.Attrs().Statistics
		if stats == nil {
			return nil
		}
		sample.RxBytes = stats.RxBytes
		sample.TxBytes = stats.TxBytes
		sample.RxPackets = stats.RxPackets
		sample.TxPackets = stats.TxPackets
		sample.RxErrors = stats.RxErrors
		sample.TxErrors = stats.TxErrors
		sample.RxDropped = stats.RxDropped
		sample.TxDropped = stats.TxDropped
		return nil
	})
	return sample, err
}

func linkLookupErr(iface string, err error) error {
	var notFound netlink.LinkNotFoundError
	if errors.As(err, &notFound) {
		return tcproto.NewError(tcproto.NamespaceUnavailable, fmt.Sprintf("interface %q not found", iface), err)
	}
	return tcproto.NewError(tcproto.NetlinkFailure, fmt.Sprintf("look up interface %q", iface), err)
}

func linkHasNetem(h *netlink.Handle, link netlink.Link) (bool, error) {
	qdiscs, err := h.QdiscList(link)
	if err != nil {
		return false, tcproto.NewError(tcproto.NetlinkFailure, "list qdiscs", err)
	}
	for _, qd := range qdiscs {
		if qd.Attrs().Parent != netlink.HANDLE_ROOT {
			continue
		}
		if _, ok := qd.(*netlink.Netem); ok {
			return true, nil
		}
	}
	return false, nil
}

// buildNetemAttrs translates a NetemConfig into vishvananda/netlink's Netem
// qdisc type. Percent fields there are stored as uint32 fixed-point
// fractions of 0xffffffff; netlink.NetemQdiscAttrs does the conversion, we
// only need to hand it the float percentages it already expects.
func buildNetemAttrs(linkIndex int, cfg tcproto.NetemConfig) *netlink.Netem {
	attrs := netlink.NetemQdiscAttrs{
		Latency:       durationUs(cfg.Delay.BaseMs),
		Jitter:        durationUs(cfg.Delay.JitterMs),
		DelayCorr:     float32(cfg.Delay.Correlation),
		Loss:          float32(cfg.Loss.Percent),
		LossCorr:      float32(cfg.Loss.Correlation),
		Gap:           uint32(cfg.Reorder.Gap),
		Duplicate:     float32(cfg.Duplicate.Percent),
		DuplicateCorr: float32(cfg.Duplicate.Correlation),
		ReorderProb:   float32(cfg.Reorder.Percent),
		ReorderCorr:   float32(cfg.Reorder.Correlation),
		CorruptProb:   float32(cfg.Corrupt.Percent),
		CorruptCorr:   float32(cfg.Corrupt.Correlation),
	}
	netem := netlink.NewNetem(netlink.QdiscAttrs{
		LinkIndex: linkIndex,
		Handle:    netlink.MakeHandle(1, 0),
		Parent:    netlink.HANDLE_ROOT,
	}, attrs)

	if cfg.RateLimit.Enabled && cfg.RateLimit.RateKbps > 0 {
		netem.Rate = &netlink.NetemRateAttrs{Rate: uint32(cfg.RateLimit.RateKbps * 1000 / 8)}
	}
	return netem
}

func durationUs(ms float64) uint32 {
	return uint32(ms * 1000)
}

func renderNetemText(qd *netlink.Netem) string {
	toks := qdisc.Encode(netemToConfig(qd))
	text := "qdisc netem root refcnt 1"
	for _, t := range toks {
		text += " " + t
	}
	return text
}

func netemToConfig(qd *netlink.Netem) tcproto.NetemConfig {
	var c tcproto.NetemConfig
	if qd.Loss > 0 {
		c.Loss = tcproto.LossConfig{Enabled: true, Percent: float64(qd.Loss), Correlation: float64(qd.LossCorr)}
	}
	if qd.Latency > 0 {
		c.Delay = tcproto.DelayConfig{
			Enabled:     true,
			BaseMs:      float64(qd.Latency) / 1000,
			JitterMs:    float64(qd.Jitter) / 1000,
			Correlation: float64(qd.DelayCorr),
		}
	}
	if qd.Duplicate > 0 {
		c.Duplicate = tcproto.DuplicateConfig{Enabled: true, Percent: float64(qd.Duplicate), Correlation: float64(qd.DuplicateCorr)}
	}
	if qd.ReorderProb > 0 {
		c.Reorder = tcproto.ReorderConfig{Enabled: true, Percent: float64(qd.ReorderProb), Correlation: float64(qd.ReorderCorr), Gap: int(qd.Gap)}
	}
	if qd.CorruptProb > 0 {
		c.Corrupt = tcproto.CorruptConfig{Enabled: true, Percent: float64(qd.CorruptProb), Correlation: float64(qd.CorruptCorr)}
	}
	if qd.Rate != nil && qd.Rate.Rate > 0 {
		c.RateLimit = tcproto.RateLimitConfig{Enabled: true, RateKbps: int(qd.Rate.Rate * 8 / 1000)}
	}
	return c
}
