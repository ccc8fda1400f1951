package scenario

import (
	"context"

	"tcmesh/internal/bus"
	"tcmesh/internal/check"
	"tcmesh/internal/tcproto"
)

// RegisterQueryHandler wires a Store into the scenario query/reply topic for
// backend, answering List and Get requests.
func RegisterQueryHandler(s *Store, session bus.Session, backendName string) error {
	check.Assert(s != nil, "scenario.RegisterQueryHandler: store must not be nil")
	check.Assert(session != nil, "scenario.RegisterQueryHandler: session must not be nil")

	return session.RegisterQueryHandler(bus.QueryScenario(backendName), func(ctx context.Context, request any) (any, error) {
		req, ok := request.(tcproto.ScenarioQueryRequest)
		if !ok {
			return tcproto.ScenarioQueryResponse{}, nil
		}
		switch req.Op {
		case tcproto.ScenarioQueryGet:
			sc, found := s.Get(req.ID)
			resp := tcproto.ScenarioQueryResponse{Found: found}
			if found {
				resp.Scenario = &sc
			}
			return resp, nil
		default:
			scenarios, loadErrs := s.List(req.Tag)
			return tcproto.ScenarioQueryResponse{Scenarios: scenarios, LoadErrors: loadErrs, Found: true}, nil
		}
	})
}
