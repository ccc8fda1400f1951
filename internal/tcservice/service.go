// Package tcservice handles TC apply/remove requests over the query bus
// and owns the per-interface TC-config publisher, including the initial
// detection run the first time InterfaceService sees an interface.
package tcservice

import (
	"context"
	"sync"
	"time"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/logging"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/qdisc"
	"tcmesh/internal/tcproto"
)

// pubKey identifies one interface's TC-config publisher. TcService never
// learns an interface's kernel ifindex -- it only sees namespace+name over
// the query protocol -- so it keys its own publisher map independently of
// tcproto.InterfaceKey.
type pubKey struct {
	ns    tcproto.NamespaceKey
	iface string
}

// Config configures a Service.
type Config struct {
	BackendName       string
	HistoryDepth      int
	HeartbeatInterval time.Duration

	// OnMutation, if set, is called once per successful ApplyConfig/Remove
	// (not initial detection). BackendHost uses it to drive an OTel counter.
	OnMutation func()
}

// Service applies, removes, and reports NetemConfig for interfaces across
// every namespace the registry knows about.
type Service struct {
	gw      netlinkgw.Gateway
	session bus.Session
	cfg     Config

	mu         sync.Mutex
	publishers map[pubKey]bus.Publisher
}

// New constructs a Service and registers its query handler at
// tcgui/<backend>/query/tc.
func New(gw netlinkgw.Gateway, session bus.Session, cfg Config) (*Service, error) {
	check.Assert(gw != nil, "tcservice.New: gateway must not be nil")
	check.Assert(session != nil, "tcservice.New: session must not be nil")

	s := &Service{gw: gw, session: session, cfg: cfg, publishers: make(map[pubKey]bus.Publisher)}
	if err := session.RegisterQueryHandler(bus.QueryTc(cfg.BackendName), s.handleQuery); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) handleQuery(ctx context.Context, request any) (any, error) {
	req, ok := request.(tcproto.TcRequest)
	if !ok {
		return tcproto.TcResponse{Success: false, Message: "malformed TC request", ErrorCode: tcproto.QdiscValidation}, nil
	}

	if req.Operation.Kind == tcproto.TcOpRemove {
		return s.remove(req.Namespace, req.Interface), nil
	}

	cfg := resolveOperation(req.Operation)
	if cfg.IsEmpty() {
		return s.remove(req.Namespace, req.Interface), nil
	}
	if err := cfg.Validate(); err != nil {
		return tcproto.TcResponse{Success: false, Message: err.Error(), ErrorCode: tcproto.QdiscValidation}, nil
	}
	return s.apply(req.Namespace, req.Interface, cfg), nil
}

func (s *Service) apply(ns tcproto.NamespaceKey, iface string, cfg tcproto.NetemConfig) tcproto.TcResponse {
	if err := s.gw.ReplaceQdisc(ns, iface, cfg); err != nil {
		return tcproto.TcResponse{Success: false, Message: err.Error(), ErrorCode: errKind(err)}
	}
	applied := tcproto.TcConfiguration{Config: cfg, Command: qdisc.Command(iface, cfg)}
	s.publish(ns, iface, &applied, true)
	s.notifyMutation()
	return tcproto.TcResponse{Success: true, Message: "applied", AppliedConfig: &applied}
}

func (s *Service) remove(ns tcproto.NamespaceKey, iface string) tcproto.TcResponse {
	if err := s.gw.RemoveQdisc(ns, iface); err != nil {
		return tcproto.TcResponse{Success: false, Message: err.Error(), ErrorCode: errKind(err)}
	}
	s.publish(ns, iface, nil, false)
	s.notifyMutation()
	return tcproto.TcResponse{Success: true, Message: "removed"}
}

func (s *Service) notifyMutation() {
	if s.cfg.OnMutation != nil {
		s.cfg.OnMutation()
	}
}

// PublishInitialState implements interfacesvc.TcPublisher: it runs qdisc
// detection for a newly seen interface and publishes the result.
func (s *Service) PublishInitialState(ns tcproto.NamespaceKey, iface string) {
	log := logging.Component("tcservice")

	text, err := s.gw.QdiscText(ns, iface)
	if err != nil {
		log.Warn("initial qdisc detection failed", "namespace", ns.String(), "interface", iface, "error", err)
		s.publish(ns, iface, nil, false)
		return
	}
	if text == "" {
		s.publish(ns, iface, nil, false)
		return
	}
	cfg := qdisc.Decode(text)
	applied := tcproto.TcConfiguration{Config: cfg, Command: qdisc.Command(iface, cfg)}
	s.publish(ns, iface, &applied, true)
}

// Forget implements interfacesvc.TcPublisher: it drops iface's publisher.
func (s *Service) Forget(ns tcproto.NamespaceKey, iface string) {
	ik := pubKey{ns: ns, iface: iface}

	s.mu.Lock()
	pub, ok := s.publishers[ik]
	delete(s.publishers, ik)
	s.mu.Unlock()

	if ok {
		pub.Close()
	}
}

func (s *Service) publish(ns tcproto.NamespaceKey, iface string, applied *tcproto.TcConfiguration, hasTc bool) {
	pub := s.publisherFor(ns, iface)
	pub.Publish(tcproto.TcConfigUpdate{
		Namespace:     ns,
		Interface:     iface,
		BackendName:   s.cfg.BackendName,
		TimestampMs:   time.Now().UnixMilli(),
		Configuration: applied,
		HasTc:         hasTc,
	})
}

func (s *Service) publisherFor(ns tcproto.NamespaceKey, iface string) bus.Publisher {
	ik := pubKey{ns: ns, iface: iface}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[ik]; ok {
		return pub
	}
	pub, err := s.session.DeclarePublisher(bus.TcConfig(s.cfg.BackendName, ns.String(), iface), bus.PublisherOptions{
		HistoryDepth:      s.cfg.HistoryDepth,
		HeartbeatInterval: s.cfg.HeartbeatInterval,
	})
	check.Assertf(err == nil, "tcservice: declare publisher: %v", err)
	s.publishers[ik] = pub
	return pub
}

func errKind(err error) tcproto.ErrorKind {
	if kind, ok := tcproto.KindOf(err); ok {
		return kind
	}
	return tcproto.NetlinkFailure
}
