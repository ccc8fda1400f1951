package scenario

import "tcmesh/internal/tcproto"

// builtins returns the small built-in scenario set. The full catalog lives
// externally (spec §1); these exist so a fresh install has something to
// demo without a scenario directory configured.
func builtins() []tcproto.Scenario {
	scenarios := []tcproto.Scenario{
		steadyState(),
		flakyLink(),
		bufferbloat(),
	}
	for i := range scenarios {
		scenarios[i].Recalculate()
	}
	return scenarios
}

func steadyState() tcproto.Scenario {
	return tcproto.Scenario{
		ID:          "builtin-steady-state",
		Name:        "Steady State",
		Description: "No shaping, as a baseline to compare other scenarios against.",
		Metadata:    tcproto.ScenarioMetadata{Tags: []string{"builtin", "baseline"}, IsTemplate: true},
		Steps: []tcproto.Step{
			{AtOffsetMs: 0, Description: "clear shaping", HoldMs: 30000},
		},
	}
}

func flakyLink() tcproto.Scenario {
	return tcproto.Scenario{
		ID:          "builtin-flaky-link",
		Name:        "Flaky Link",
		Description: "Packet loss ramps up in steps, then recovers.",
		Metadata:    tcproto.ScenarioMetadata{Tags: []string{"builtin", "loss"}, IsTemplate: true},
		Steps: []tcproto.Step{
			{
				AtOffsetMs:  0,
				Description: "mild loss",
				Config:      tcproto.NetemConfig{Loss: tcproto.LossConfig{Enabled: true, Percent: 2}},
				HoldMs:      15000,
			},
			{
				AtOffsetMs:  15000,
				Description: "severe loss",
				Config:      tcproto.NetemConfig{Loss: tcproto.LossConfig{Enabled: true, Percent: 20, Correlation: 25}},
				Transition:  tcproto.Transition{Kind: tcproto.TransitionLinear, DurationMs: 2000},
				HoldMs:      15000,
			},
			{
				AtOffsetMs:  30000,
				Description: "recovered",
				HoldMs:      15000,
			},
		},
	}
}

func bufferbloat() tcproto.Scenario {
	return tcproto.Scenario{
		ID:          "builtin-bufferbloat",
		Name:        "Bufferbloat",
		Description: "A constrained rate followed by growing latency, mimicking a saturated uplink.",
		Metadata:    tcproto.ScenarioMetadata{Tags: []string{"builtin", "rate", "delay"}, IsTemplate: true},
		Steps: []tcproto.Step{
			{
				AtOffsetMs:  0,
				Description: "rate-limit the link",
				Config:      tcproto.NetemConfig{RateLimit: tcproto.RateLimitConfig{Enabled: true, RateKbps: 512}},
				HoldMs:      10000,
			},
			{
				AtOffsetMs:  10000,
				Description: "queueing delay builds up",
				Config: tcproto.NetemConfig{
					RateLimit: tcproto.RateLimitConfig{Enabled: true, RateKbps: 512},
					Delay:     tcproto.DelayConfig{Enabled: true, BaseMs: 400, JitterMs: 50},
				},
				Transition: tcproto.Transition{Kind: tcproto.TransitionExponential, DurationMs: 5000},
				HoldMs:     20000,
			},
		},
	}
}
