// Package backend composes a single agent: one NamespaceRegistry, one
// NetlinkGateway, the container inspectors configured for this host, and
// the four stateful services (InterfaceService, TcService,
// InterfaceControlService, BandwidthSampler) plus the scenario store and
// engine, all talking over one bus.Session.
package backend

import (
	"context"
	"fmt"
	"sync"

	"tcmesh/internal/bandwidth"
	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/container"
	"tcmesh/internal/ifacecontrol"
	"tcmesh/internal/interfacesvc"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/registry"
	"tcmesh/internal/scenario"
	"tcmesh/internal/scenarioengine"
	"tcmesh/internal/tcproto"
	"tcmesh/internal/tcservice"
	"tcmesh/pkg/sdk/progress"
)

// Host owns every component's lifetime and drives the discovery,
// bandwidth-sampling, and health-publishing loops.
type Host struct {
	cfg Config

	gw         netlinkgw.Gateway
	inspectors []container.Inspector
	registry   *registry.Registry
	session    bus.Session
	metrics    *metrics

	ifaceSvc *interfacesvc.Service
	tcSvc    *tcservice.Service
	ctrlSvc  *ifacecontrol.Service
	sampler  *bandwidth.Sampler
	store    *scenario.Store
	engine   *scenarioengine.Engine

	wg sync.WaitGroup
}

// New boots a Host: opens the netlink gateway, starts configured container
// inspectors, primes the namespace registry, and registers every query
// handler. Each step is reported through a progress.Tracker logged at
// debug, since boot progress is operational, not a protocol message.
func New(cfg Config, session bus.Session, gw netlinkgw.Gateway) (*Host, error) {
	check.Assert(session != nil, "backend.New: session must not be nil")
	check.Assert(gw != nil, "backend.New: gateway must not be nil")
	cfg = cfg.withDefaults()

	log := logging.Component("backend")
	tracker := progress.New(func(snap progress.Snapshot) {
		for _, step := range snap.Steps {
			log.Debug("boot step", "id", step.ID, "status", step.Status, "message", step.Message)
		}
	},
		progress.StepConfig{ID: "gateway", Title: "open netlink gateway"},
		progress.StepConfig{ID: "inspectors", Title: "start container inspectors"},
		progress.StepConfig{ID: "registry", Title: "prime namespace registry"},
		progress.StepConfig{ID: "services", Title: "register query handlers"},
	)

	h := &Host{cfg: cfg, gw: gw, session: session, metrics: newMetrics()}

	if err := tracker.Do("gateway", func() error {
		_, err := gw.ListLinks(tcproto.Default())
		return err
	}); err != nil {
		return nil, fmt.Errorf("open netlink gateway: %w", err)
	}

	var inspectors []container.Inspector
	if err := tracker.Do("inspectors", func() error {
		var err error
		inspectors, err = buildInspectors(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	h.inspectors = inspectors

	h.registry = registry.New(gw, inspectors, cfg.NetnsDir)
	if err := tracker.Do("registry", func() error {
		h.registry.Refresh(context.Background())
		return nil
	}); err != nil {
		return nil, err
	}

	if err := tracker.Do("services", func() error {
		return h.buildServices(cfg)
	}); err != nil {
		return nil, err
	}

	return h, nil
}

func buildInspectors(cfg Config) ([]container.Inspector, error) {
	var inspectors []container.Inspector
	if cfg.EnableDocker {
		insp, err := container.NewDockerInspector()
		if err != nil {
			return nil, fmt.Errorf("start docker inspector: %w", err)
		}
		inspectors = append(inspectors, insp)
	}
	if cfg.ContainerdAddr != "" {
		insp, err := container.NewContainerdInspector(cfg.ContainerdAddr, cfg.ContainerdNamespace)
		if err != nil {
			return nil, fmt.Errorf("start containerd inspector: %w", err)
		}
		inspectors = append(inspectors, insp)
	}
	return inspectors, nil
}

func (h *Host) buildServices(cfg Config) error {
	tcSvc, err := tcservice.New(h.gw, h.session, tcservice.Config{
		BackendName:       cfg.BackendName,
		HistoryDepth:      cfg.TcConfigHistoryDepth,
		HeartbeatInterval: cfg.TcHeartbeat,
		OnMutation:        h.metrics.incTcMutation,
	})
	if err != nil {
		return fmt.Errorf("start tc service: %w", err)
	}
	h.tcSvc = tcSvc

	ifaceSvc, err := interfacesvc.New(h.registry, h.gw, h.session, tcSvc, interfacesvc.Config{
		BackendName: cfg.BackendName,
		Interval:    cfg.DiscoveryInterval,
		ListDepth:   cfg.InterfaceListHistoryDepth,
		EventsDepth: cfg.InterfaceEventsHistoryDepth,
	})
	if err != nil {
		return fmt.Errorf("start interface service: %w", err)
	}
	h.ifaceSvc = ifaceSvc

	ctrlSvc, err := ifacecontrol.New(h.gw, h.session, ifacecontrol.Config{BackendName: cfg.BackendName})
	if err != nil {
		return fmt.Errorf("start interface control service: %w", err)
	}
	h.ctrlSvc = ctrlSvc

	h.sampler = bandwidth.New(h.registry, h.gw, h.session, bandwidth.Config{
		BackendName: cfg.BackendName,
		Interval:    cfg.BandwidthInterval,
	})

	store, err := scenario.New(cfg.ScenarioDirs)
	if err != nil {
		return fmt.Errorf("start scenario store: %w", err)
	}
	h.store = store
	if err := scenario.RegisterQueryHandler(store, h.session, cfg.BackendName); err != nil {
		return fmt.Errorf("register scenario query handler: %w", err)
	}

	engine, err := scenarioengine.New(store, h.session, scenarioengine.Config{
		BackendName:  cfg.BackendName,
		QueryTimeout: cfg.QueryTimeout,
		SleepChunk:   cfg.SleepChunk,
		OnStep:       h.metrics.incScenarioStep,
	})
	if err != nil {
		return fmt.Errorf("start scenario engine: %w", err)
	}
	h.engine = engine

	return nil
}

// Run drives every periodic loop until ctx is done, then tears down
// metrics and the scenario store's file watcher. It blocks until ctx is
// done and every loop has returned.
func (h *Host) Run(ctx context.Context) error {
	if err := h.session.DeclareLiveliness(ctx, bus.Health(h.cfg.BackendName)); err != nil {
		return fmt.Errorf("declare liveliness: %w", err)
	}

	h.wg.Add(3)
	go func() {
		defer h.wg.Done()
		h.runDiscovery(ctx)
	}()
	go func() {
		defer h.wg.Done()
		h.sampler.Run(ctx)
	}()
	go func() {
		defer h.wg.Done()
		h.runHealth(ctx)
	}()

	<-ctx.Done()
	h.wg.Wait()

	_ = h.store.Close()
	return h.metrics.shutdown(context.Background())
}
