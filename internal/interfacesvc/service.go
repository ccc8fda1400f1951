// Package interfacesvc runs the periodic interface discovery loop: it polls
// NamespaceRegistry and NetlinkGateway, diffs the result against the
// previous tick, and publishes the interface-list snapshot and
// interface-event stream. It owns every InterfaceRecord in the system --
// every other component treats them as read-only.
package interfacesvc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/registry"
	"tcmesh/internal/tcproto"
)

// TcPublisher is the narrow view of TcService that InterfaceService calls
// directly (not through the query bus) when an interface appears or
// disappears, so TC state detection and publisher lifecycle stay inside
// TcService while InterfaceService drives the trigger.
type TcPublisher interface {
	// PublishInitialState runs TC initial detection for a newly seen
	// interface and publishes the result.
	PublishInitialState(ns tcproto.NamespaceKey, iface string)
	// Forget drops iface's TC-config publisher once it disappears.
	Forget(ns tcproto.NamespaceKey, iface string)
}

// Service runs the discovery loop and publishes the interface-list and
// interface-events topics.
type Service struct {
	registry    *registry.Registry
	gw          netlinkgw.Gateway
	session     bus.Session
	tc          TcPublisher
	backendName string
	interval    time.Duration

	listPub   bus.Publisher
	eventsPub bus.Publisher

	mu       sync.Mutex
	previous map[tcproto.InterfaceKey]tcproto.InterfaceRecord

	ticking atomic.Bool
}

// Config configures a new Service.
type Config struct {
	BackendName string
	Interval    time.Duration
	ListDepth   int
	EventsDepth int
}

// New constructs a Service and declares its two publishers.
func New(reg *registry.Registry, gw netlinkgw.Gateway, session bus.Session, tc TcPublisher, cfg Config) (*Service, error) {
	check.Assert(reg != nil, "interfacesvc.New: registry must not be nil")
	check.Assert(gw != nil, "interfacesvc.New: gateway must not be nil")
	check.Assert(session != nil, "interfacesvc.New: session must not be nil")
	check.Assert(tc != nil, "interfacesvc.New: tc publisher must not be nil")

	listPub, err := session.DeclarePublisher(bus.InterfacesList(cfg.BackendName), bus.PublisherOptions{HistoryDepth: cfg.ListDepth})
	if err != nil {
		return nil, err
	}
	eventsPub, err := session.DeclarePublisher(bus.InterfaceEvents(cfg.BackendName), bus.PublisherOptions{HistoryDepth: cfg.EventsDepth})
	if err != nil {
		return nil, err
	}

	return &Service{
		registry:    reg,
		gw:          gw,
		session:     session,
		tc:          tc,
		backendName: cfg.BackendName,
		interval:    cfg.Interval,
		listPub:     listPub,
		eventsPub:   eventsPub,
		previous:    make(map[tcproto.InterfaceKey]tcproto.InterfaceRecord),
	}, nil
}

// Run drives the discovery loop until ctx is done. A pending tick elides if
// the previous tick is still running.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.ticking.CompareAndSwap(false, true) {
				continue
			}
			s.Tick(ctx)
			s.ticking.Store(false)
		}
	}
}

// Tick runs one discovery pass: refresh the registry, collect every
// namespace's interfaces, diff against the previous snapshot, and publish.
func (s *Service) Tick(ctx context.Context) {
	log := logging.Component("interfacesvc")

	s.registry.Refresh(ctx)
	namespaces := s.registry.Namespaces()
	containers := s.registry.Containers()

	current := make(map[tcproto.InterfaceKey]tcproto.InterfaceRecord)
	descriptors := make([]tcproto.NamespaceDescriptor, 0, len(namespaces))

	for _, ns := range namespaces {
		records, err := s.gw.ListLinks(ns)
		if err != nil {
			log.Warn("namespace unavailable", "namespace", ns.String(), "error", err)
			continue
		}
		for _, rec := range records {
			current[rec.Key()] = rec
		}
		descriptors = append(descriptors, buildDescriptor(ns, records, containers))
	}

	s.mu.Lock()
	previous := s.previous
	s.previous = current
	s.mu.Unlock()

	now := time.Now().UnixMilli()

	s.listPub.Publish(tcproto.InterfaceListUpdate{
		Namespaces:  descriptors,
		TimestampMs: now,
		BackendName: s.backendName,
	})

	for key, rec := range current {
		prev, existed := previous[key]
		if !existed {
			s.publishEvent(rec, tcproto.EventAdded, now)
			s.tc.PublishInitialState(rec.NamespaceKey, rec.Name)
			continue
		}
		if prev.IsUp != rec.IsUp {
			s.publishEvent(rec, tcproto.EventStateChanged, now)
		}
		if !prev.HasNetemQdisc && rec.HasNetemQdisc {
			s.publishEvent(rec, tcproto.EventQdiscAdded, now)
		}
		if prev.HasNetemQdisc && !rec.HasNetemQdisc {
			s.publishEvent(rec, tcproto.EventQdiscRemoved, now)
		}
		delete(previous, key)
	}

	for _, rec := range previous {
		s.publishEvent(rec, tcproto.EventRemoved, now)
		s.tc.Forget(rec.NamespaceKey, rec.Name)
	}
}

func (s *Service) publishEvent(rec tcproto.InterfaceRecord, kind tcproto.InterfaceEventKind, now int64) {
	s.eventsPub.Publish(tcproto.InterfaceStateEvent{
		Namespace:   rec.NamespaceKey,
		Interface:   rec,
		EventType:   kind,
		TimestampMs: now,
		BackendName: s.backendName,
	})
}

func buildDescriptor(ns tcproto.NamespaceKey, records []tcproto.InterfaceRecord, containers map[string]tcproto.ContainerRecord) tcproto.NamespaceDescriptor {
	desc := tcproto.NamespaceDescriptor{
		Name:       ns.String(),
		IsActive:   true,
		Interfaces: records,
	}
	switch ns.Kind {
	case tcproto.NamespaceDefault:
		desc.Kind = tcproto.NsDescDefault
	case tcproto.NamespaceNamed:
		desc.Kind = tcproto.NsDescTraditional
	case tcproto.NamespaceContainer:
		desc.Kind = tcproto.NsDescContainer
		if rec, ok := containers[ns.Name]; ok {
			desc.ID = rec.ShortID
			desc.RuntimeTag = rec.RuntimeTag
			desc.ContainerID = rec.ShortID
			desc.Image = rec.Image
		}
	}
	return desc
}
