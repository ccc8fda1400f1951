// Package bandwidth periodically samples interface counters and publishes
// the derived rates, best-effort with no history: a subscriber that misses a
// tick just waits for the next one.
package bandwidth

import (
	"context"
	"sync"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/registry"
	"tcmesh/internal/tcproto"
)

// Config configures a Sampler.
type Config struct {
	BackendName string
	Interval    time.Duration
}

type sampleKey struct {
	ns    tcproto.NamespaceKey
	iface string
}

// Sampler takes a counter reading for every known interface on each tick,
// derives rates against the prior reading, and publishes the result.
type Sampler struct {
	registry *registry.Registry
	gw       netlinkgw.Gateway
	session  bus.Session
	cfg      Config

	mu         sync.Mutex
	prev       map[sampleKey]tcproto.BandwidthSample
	publishers map[sampleKey]bus.Publisher
}

// New constructs a Sampler.
func New(reg *registry.Registry, gw netlinkgw.Gateway, session bus.Session, cfg Config) *Sampler {
	check.Assert(reg != nil, "bandwidth.New: registry must not be nil")
	check.Assert(gw != nil, "bandwidth.New: gateway must not be nil")
	check.Assert(session != nil, "bandwidth.New: session must not be nil")

	return &Sampler{
		registry:   reg,
		gw:         gw,
		session:    session,
		cfg:        cfg,
		prev:       make(map[sampleKey]tcproto.BandwidthSample),
		publishers: make(map[sampleKey]bus.Publisher),
	}
}

// Run drives the sampling loop until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick takes one counter reading across every namespace the registry knows
// about, derives rates, publishes, and evicts interfaces that disappeared.
func (s *Sampler) Tick() {
	log := logging.Component("bandwidth")

	now := float64(time.Now().UnixNano()) / 1e9
	seen := make(map[sampleKey]bool)

	for _, ns := range s.registry.Namespaces() {
		records, err := s.gw.ListLinks(ns)
		if err != nil {
			log.Warn("namespace unavailable", "namespace", ns.String(), "error", err)
			continue
		}
		for _, rec := range records {
			key := sampleKey{ns: ns, iface: rec.Name}
			seen[key] = true

			curr, err := s.gw.Counters(ns, rec.Name)
			if err != nil {
				log.Warn("counters unavailable", "namespace", ns.String(), "interface", rec.Name, "error", err)
				continue
			}
			curr.WallTsS = now

			s.mu.Lock()
			prev, hasPrev := s.prev[key]
			s.prev[key] = curr
			s.mu.Unlock()

			if hasPrev {
				curr = tcproto.DeriveRates(prev, curr)
			} else {
				curr.RxBytesPerSec = 0
				curr.TxBytesPerSec = 0
			}

			s.publisherFor(key).Publish(tcproto.BandwidthUpdate{
				Namespace:   ns,
				Interface:   rec.Name,
				Stats:       curr,
				BackendName: s.cfg.BackendName,
			})
		}
	}

	s.evict(seen)
}

// evict drops prev-sample and publisher state for interfaces no longer seen.
func (s *Sampler) evict(seen map[sampleKey]bool) {
	s.mu.Lock()
	var stale []sampleKey
	for key := range s.prev {
		if !seen[key] {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(s.prev, key)
	}
	pubs := make([]bus.Publisher, 0, len(stale))
	for _, key := range stale {
		if pub, ok := s.publishers[key]; ok {
			pubs = append(pubs, pub)
			delete(s.publishers, key)
		}
	}
	s.mu.Unlock()

	for _, pub := range pubs {
		pub.Close()
	}
}

func (s *Sampler) publisherFor(key sampleKey) bus.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[key]; ok {
		return pub
	}
	pub, err := s.session.DeclarePublisher(bus.Bandwidth(s.cfg.BackendName, key.ns.String(), key.iface), bus.PublisherOptions{})
	check.Assertf(err == nil, "bandwidth: declare publisher: %v", err)
	s.publishers[key] = pub
	return pub
}
