package tcproto

// TransitionKind selects how a step's configuration ramps toward the next.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionLinear
	TransitionExponential
)

// Transition describes how long a step takes to settle before its hold
// begins. A zero value (TransitionNone, DurationMs 0) contributes nothing.
type Transition struct {
	Kind       TransitionKind `json:"kind"`
	DurationMs int64          `json:"duration_ms"`
}

// Duration returns the transition's contribution to a step's total hold,
// treating TransitionNone as a zero-length transition regardless of
// DurationMs.
func (t Transition) Duration() int64 {
	if t.Kind == TransitionNone {
		return 0
	}
	return t.DurationMs
}

// Step is one point in a scenario's timeline: apply Config at AtOffsetMs,
// ramp per Transition, then hold for HoldMs before moving to the next step.
type Step struct {
	AtOffsetMs  int64       `json:"at_offset_ms"`
	Description string      `json:"description"`
	Config      NetemConfig `json:"config"`
	Transition  Transition  `json:"transition"`
	HoldMs      int64       `json:"hold_ms"`
}

// Hold returns the total time the engine waits after applying this step's
// configuration: the transition's settle time plus the explicit hold.
func (s Step) Hold() int64 {
	return s.Transition.Duration() + s.HoldMs
}

// ScenarioMetadata carries descriptive and bookkeeping fields that aren't
// part of the step timeline itself.
type ScenarioMetadata struct {
	Tags            []string `json:"tags"`
	Author          string   `json:"author"`
	Version         string   `json:"version"`
	TotalDurationMs int64    `json:"total_duration_ms"`
	IsTemplate      bool     `json:"is_template"`
}

// Scenario is an ordered sequence of steps applied to an interface over
// time. Steps must be ordered by AtOffsetMs non-decreasing; TotalDurationMs
// is recomputable from the steps via Recalculate.
type Scenario struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Metadata    ScenarioMetadata `json:"metadata"`
	Steps       []Step           `json:"steps"`
}

// Recalculate derives Metadata.TotalDurationMs from the step timeline: the
// maximum AtOffsetMs plus that step's own hold/transition contribution. It
// mutates the receiver in place and returns the computed value.
func (s *Scenario) Recalculate() int64 {
	var total int64
	for _, step := range s.Steps {
		end := step.AtOffsetMs + step.Hold()
		if end > total {
			total = end
		}
	}
	s.Metadata.TotalDurationMs = total
	return total
}

// StepsOrdered reports whether Steps is sorted by AtOffsetMs non-decreasing,
// the invariant the scenario store enforces on load.
func (s Scenario) StepsOrdered() bool {
	for i := 1; i < len(s.Steps); i++ {
		if s.Steps[i].AtOffsetMs < s.Steps[i-1].AtOffsetMs {
			return false
		}
	}
	return true
}
