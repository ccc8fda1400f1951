// Package ifacecontrol handles Enable/Disable requests for a single
// interface's administrative state by delegating to NetlinkGateway.
package ifacecontrol

import (
	"context"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/netlinkgw"
	"tcmesh/internal/tcproto"
)

// Config configures a Service.
type Config struct {
	BackendName string
}

// Service answers InterfaceControlRequest queries.
type Service struct {
	gw  netlinkgw.Gateway
	cfg Config
}

// New constructs a Service and registers its query handler at
// tcgui/<backend>/query/interface.
func New(gw netlinkgw.Gateway, session bus.Session, cfg Config) (*Service, error) {
	check.Assert(gw != nil, "ifacecontrol.New: gateway must not be nil")
	check.Assert(session != nil, "ifacecontrol.New: session must not be nil")

	s := &Service{gw: gw, cfg: cfg}
	if err := session.RegisterQueryHandler(bus.QueryInterface(cfg.BackendName), s.handleQuery); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) handleQuery(ctx context.Context, request any) (any, error) {
	req, ok := request.(tcproto.InterfaceControlRequest)
	if !ok {
		return tcproto.InterfaceControlResponse{Success: false, Message: "malformed interface control request"}, nil
	}

	current := s.currentState(req.Namespace, req.Interface)

	var err error
	switch req.Operation {
	case tcproto.ControlEnable:
		err = s.gw.SetLinkUp(req.Namespace, req.Interface)
	case tcproto.ControlDisable:
		err = s.gw.SetLinkDown(req.Namespace, req.Interface)
	default:
		return tcproto.InterfaceControlResponse{Success: false, Message: "unknown operation", NewState: current}, nil
	}

	if err != nil {
		return tcproto.InterfaceControlResponse{Success: false, Message: err.Error(), NewState: current}, nil
	}
	return tcproto.InterfaceControlResponse{
		Success:  true,
		Message:  "ok",
		NewState: req.Operation == tcproto.ControlEnable,
	}, nil
}

// currentState looks up iface's present admin state within ns, for the
// response's NewState field to fall back on when the requested change fails.
func (s *Service) currentState(ns tcproto.NamespaceKey, iface string) bool {
	records, err := s.gw.ListLinks(ns)
	if err != nil {
		return false
	}
	for _, rec := range records {
		if rec.Name == iface {
			return rec.IsUp
		}
	}
	return false
}
