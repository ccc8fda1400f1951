package backend

import (
	"context"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/tcproto"
)

// runDiscovery drives InterfaceService's tick loop itself, instead of
// calling Service.Run, so each tick can be wrapped with the discovery-tick
// OTel counter.
func (h *Host) runDiscovery(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.DiscoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ifaceSvc.Tick(ctx)
			h.metrics.incDiscoveryTick()
		}
	}
}

// runHealth republishes a HealthSample on a fixed cadence, reporting the
// current namespace and interface counts known to the registry.
func (h *Host) runHealth(ctx context.Context) {
	pub, err := h.session.DeclarePublisher(bus.Health(h.cfg.BackendName), bus.PublisherOptions{HistoryDepth: 1})
	if err != nil {
		return
	}
	defer pub.Close()

	h.publishHealth(ctx, pub)

	ticker := time.NewTicker(h.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.publishHealth(ctx, pub)
		}
	}
}

func (h *Host) publishHealth(ctx context.Context, pub bus.Publisher) {
	namespaces := h.registry.Namespaces()
	ifaceCount := 0
	for _, ns := range namespaces {
		records, err := h.gw.ListLinks(ns)
		if err != nil {
			continue
		}
		ifaceCount += len(records)
	}

	pub.Publish(tcproto.HealthSample{
		Status:         "ok",
		NamespaceCount: len(namespaces),
		InterfaceCount: ifaceCount,
		TimestampMs:    time.Now().UnixMilli(),
	})
}
